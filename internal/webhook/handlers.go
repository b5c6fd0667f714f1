package webhook

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/0x0BSoD/alfieriBot/internal/botkit/markup"
	"github.com/0x0BSoD/alfieriBot/internal/parser"
	"github.com/0x0BSoD/alfieriBot/internal/storage"
)

// mailForm is the payload of a Mailgun "store and notify" webhook. Timestamp
// stays a string: the signature covers its exact wire form.
type mailForm struct {
	From      string `form:"from"`
	Subject   string `form:"subject"`
	BodyHTML  string `form:"body-html"`
	Token     string `form:"token"`
	Signature string `form:"signature"`
	Timestamp string `form:"timestamp"`
}

func (s *Server) handleMail(c *gin.Context) {
	var form mailForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	if !validSignature(s.cfg.MailgunSigningKey, form.Timestamp, form.Token, form.Signature) {
		log.Printf("[ERROR] webhook signature verification failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	if !s.senderAllowed(form.From) {
		log.Printf("[ERROR] webhook from unexpected sender %q", form.From)
		c.JSON(http.StatusForbidden, gin.H{"error": "sender not allowed"})
		return
	}

	log.Printf("[INFO] received newsletter %q", form.Subject)

	entry, err := s.parser.Parse(form.Subject, form.BodyHTML)
	if err != nil {
		log.Printf("[ERROR] failed to parse newsletter: %v", err)
		s.reporter.NotifyImportFailure(form.Subject, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": errorKind(err)})
		return
	}

	newsletter, err := s.store.Store(c.Request.Context(), entry)
	if errors.Is(err, storage.ErrAlreadyStored) {
		log.Printf("[INFO] newsletter already imported, skipping")
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}
	if err != nil {
		log.Printf("[ERROR] failed to store newsletter: %v", err)
		s.reporter.NotifyImportFailure(form.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	messageID, err := s.notifier.Publish(s.notifier.Render(entry, time.Now()))
	if err != nil {
		log.Printf("[ERROR] failed to publish schedule: %v", err)
		s.reporter.NotifyImportFailure(form.Subject, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "publish failure"})
		return
	}

	if err := s.store.SetMessageID(c.Request.Context(), newsletter.ID, int64(messageID)); err != nil {
		log.Printf("[ERROR] failed to record message id %d: %v", messageID, err)
		s.reporter.NotifyImportFailure(form.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	s.wakeScheduler()

	c.JSON(http.StatusOK, gin.H{"status": "ok", "newsletter_id": newsletter.ID})
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleMessage lets an operator post an arbitrary text message to the
// channel, mainly to check the bot wiring end to end.
func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	if _, err := s.notifier.Publish(markup.EscapeForMarkdown(req.Text)); err != nil {
		log.Printf("[ERROR] failed to send message: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "publish failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type renderRequest struct {
	Subject  string `json:"subject" binding:"required"`
	BodyHTML string `json:"body_html" binding:"required"`
}

// handleRender is a dry run of the import pipeline: parse and render without
// storing or publishing anything.
func (s *Server) handleRender(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject and body_html are required"})
		return
	}

	entry, err := s.parser.Parse(req.Subject, req.BodyHTML)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "kind": errorKind(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":     s.notifier.Render(entry, time.Now()),
		"programs": len(entry.ProgrammingEntries),
	})
}

// handleRefresh is the callback target for an external scheduler: it makes
// the refresh loop re-render the latest newsletter's message right away.
func (s *Server) handleRefresh(c *gin.Context) {
	if s.waker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no refresh loop running"})
		return
	}

	s.wakeScheduler()
	c.JSON(http.StatusOK, gin.H{"status": "refresh scheduled"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) wakeScheduler() {
	if s.waker != nil {
		s.waker.Wake()
	}
}

func (s *Server) senderAllowed(from string) bool {
	if len(s.cfg.AllowedSenders) == 0 {
		return true
	}
	return lo.SomeBy(s.cfg.AllowedSenders, func(allowed string) bool {
		return strings.Contains(strings.ToLower(from), strings.ToLower(allowed))
	})
}

// errorKind labels a parse failure for the webhook response, matching the
// parser's error taxonomy.
func errorKind(err error) string {
	var (
		structErr *parser.StructuralError
		gramErr   *parser.GrammarError
		semErr    *parser.SemanticError
	)
	switch {
	case errors.As(err, &structErr):
		return "structure"
	case errors.As(err, &gramErr):
		return "grammar"
	case errors.As(err, &semErr):
		return "semantics"
	}
	return "unknown"
}
