// Package webhook receives newsletter emails forwarded by Mailgun and drives
// the import pipeline: verify the signature, parse the email, store the
// schedule, publish it to the channel.
package webhook

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/0x0BSoD/alfieriBot/internal/model"
	"github.com/0x0BSoD/alfieriBot/internal/reporter"
)

type NewsletterParser interface {
	Parse(subject, htmlBody string) (*model.NewsletterEntry, error)
}

type NewsletterStore interface {
	Store(ctx context.Context, entry *model.NewsletterEntry) (*model.Newsletter, error)
	SetMessageID(ctx context.Context, newsletterID, messageID int64) error
}

type ChannelNotifier interface {
	Render(entry *model.NewsletterEntry, now time.Time) string
	Publish(text string) (int, error)
}

// ScheduleWaker pokes the in-process refresh loop. Nil is fine when no loop
// is running, as in the replay tool.
type ScheduleWaker interface {
	Wake()
}

type Config struct {
	ListenAddr        string
	MailgunSigningKey string
	// AllowedSenders restricts which "from" addresses may trigger an import.
	// Empty means any sender with a valid signature is accepted.
	AllowedSenders []string
}

type Server struct {
	cfg      Config
	parser   NewsletterParser
	store    NewsletterStore
	notifier ChannelNotifier
	waker    ScheduleWaker
	reporter *reporter.Reporter
	router   *gin.Engine
}

func NewServer(
	cfg Config,
	parser NewsletterParser,
	store NewsletterStore,
	notifier ChannelNotifier,
	waker ScheduleWaker,
	rep *reporter.Reporter,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		parser:   parser,
		store:    store,
		notifier: notifier,
		waker:    waker,
		reporter: rep,
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/mail", s.handleMail)
	router.POST("/message", s.handleMessage)
	router.POST("/render", s.handleRender)
	router.POST("/refresh", s.handleRefresh)
	router.GET("/healthz", s.handleHealth)

	s.router = router
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ERROR] failed to shut down webhook server: %v", err)
		}
	}()

	log.Printf("[INFO] webhook server listening on %s", s.cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
