package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/alfieriBot/internal/model"
	"github.com/0x0BSoD/alfieriBot/internal/parser"
	"github.com/0x0BSoD/alfieriBot/internal/storage"
)

const testSigningKey = "key-test-signing"

type fakeParser struct {
	entry *model.NewsletterEntry
	err   error
	calls int
}

func (f *fakeParser) Parse(subject, htmlBody string) (*model.NewsletterEntry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

type fakeStore struct {
	newsletter *model.Newsletter
	storeErr   error
	messageIDs map[int64]int64
}

func (f *fakeStore) Store(ctx context.Context, entry *model.NewsletterEntry) (*model.Newsletter, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	return f.newsletter, nil
}

func (f *fakeStore) SetMessageID(ctx context.Context, newsletterID, messageID int64) error {
	if f.messageIDs == nil {
		f.messageIDs = map[int64]int64{}
	}
	f.messageIDs[newsletterID] = messageID
	return nil
}

type fakeNotifier struct {
	published  []string
	messageID  int
	publishErr error
}

func (f *fakeNotifier) Render(entry *model.NewsletterEntry, now time.Time) string {
	return "rendered schedule"
}

func (f *fakeNotifier) Publish(text string) (int, error) {
	if f.publishErr != nil {
		return 0, f.publishErr
	}
	f.published = append(f.published, text)
	return f.messageID, nil
}

type fakeWaker struct {
	calls int
}

func (f *fakeWaker) Wake() { f.calls++ }

func newTestServer(p *fakeParser, st *fakeStore, n *fakeNotifier) *Server {
	return NewServer(Config{
		ListenAddr:        ":0",
		MailgunSigningKey: testSigningKey,
		AllowedSenders:    []string{"spazioalfieri.it"},
	}, p, st, n, nil, nil)
}

func postMail(s *Server, from string, signed bool) *httptest.ResponseRecorder {
	signingKey := testSigningKey
	if !signed {
		signingKey = "wrong-key"
	}

	form := url.Values{}
	form.Set("from", from)
	form.Set("subject", "Spazio Alfieri • programmazione 25 settembre > 2 ottobre")
	form.Set("body-html", "<html></html>")
	form.Set("token", "tok-abc")
	form.Set("timestamp", "1727000000")
	form.Set("signature", signPayload(signingKey, "1727000000", "tok-abc"))

	req := httptest.NewRequest(http.MethodPost, "/mail", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHandleMail_ImportsAndPublishes(t *testing.T) {
	p := &fakeParser{entry: &model.NewsletterEntry{NewsletterLink: "https://example.org/n/1"}}
	st := &fakeStore{newsletter: &model.Newsletter{ID: 7, Link: "https://example.org/n/1"}}
	n := &fakeNotifier{messageID: 99}
	wk := &fakeWaker{}
	s := newTestServer(p, st, n)
	s.waker = wk

	w := postMail(s, "Spazio Alfieri <info@spazioalfieri.it>", true)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"rendered schedule"}, n.published)
	require.Equal(t, map[int64]int64{7: 99}, st.messageIDs)
	require.Equal(t, 1, wk.calls)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp["status"])
	require.EqualValues(t, 7, resp["newsletter_id"])
}

func TestHandleMail_InvalidSignature(t *testing.T) {
	p := &fakeParser{entry: &model.NewsletterEntry{}}
	s := newTestServer(p, &fakeStore{}, &fakeNotifier{})

	w := postMail(s, "Spazio Alfieri <info@spazioalfieri.it>", false)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Zero(t, p.calls)
}

func TestHandleMail_UnknownSender(t *testing.T) {
	p := &fakeParser{entry: &model.NewsletterEntry{}}
	s := newTestServer(p, &fakeStore{}, &fakeNotifier{})

	w := postMail(s, "Somebody <somebody@example.com>", true)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, p.calls)
}

func TestHandleMail_ParseFailure(t *testing.T) {
	p := &fakeParser{err: &parser.GrammarError{Fragment: "21:00", Msg: "date entry is missing required data: [day]"}}
	n := &fakeNotifier{}
	s := newTestServer(p, &fakeStore{}, n)

	w := postMail(s, "Spazio Alfieri <info@spazioalfieri.it>", true)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Empty(t, n.published)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "grammar", resp["kind"])
}

func TestHandleMail_DuplicateDelivery(t *testing.T) {
	p := &fakeParser{entry: &model.NewsletterEntry{}}
	st := &fakeStore{storeErr: storage.ErrAlreadyStored}
	n := &fakeNotifier{}
	s := newTestServer(p, st, n)

	w := postMail(s, "Spazio Alfieri <info@spazioalfieri.it>", true)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, n.published)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "duplicate", resp["status"])
}

func TestHandleMail_PublishFailure(t *testing.T) {
	p := &fakeParser{entry: &model.NewsletterEntry{}}
	st := &fakeStore{newsletter: &model.Newsletter{ID: 7}}
	n := &fakeNotifier{publishErr: errors.New("telegram unreachable")}
	s := newTestServer(p, st, n)

	w := postMail(s, "Spazio Alfieri <info@spazioalfieri.it>", true)

	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Nil(t, st.messageIDs)
}

func TestHandleRender_DryRun(t *testing.T) {
	p := &fakeParser{entry: &model.NewsletterEntry{}}
	st := &fakeStore{}
	n := &fakeNotifier{}
	s := newTestServer(p, st, n)

	body, err := json.Marshal(map[string]string{
		"subject":   "Spazio Alfieri • programmazione 25 settembre > 2 ottobre",
		"body_html": "<html></html>",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/render", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, n.published)
	require.Nil(t, st.messageIDs)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "rendered schedule", resp["text"])
}

func TestHandleMessage_EscapesAndPublishes(t *testing.T) {
	n := &fakeNotifier{messageID: 1}
	s := newTestServer(&fakeParser{}, &fakeStore{}, n)

	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(`{"text":"ciao. tutto ok!"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{`ciao\. tutto ok\!`}, n.published)
}

func TestHandleRefresh_WakesScheduler(t *testing.T) {
	wk := &fakeWaker{}
	s := newTestServer(&fakeParser{}, &fakeStore{}, &fakeNotifier{})
	s.waker = wk

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, wk.calls)
}

func TestHandleRefresh_WithoutLoop(t *testing.T) {
	s := newTestServer(&fakeParser{}, &fakeStore{}, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeParser{}, &fakeStore{}, &fakeNotifier{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
