// Package scheduler keeps the published schedule message current. The message
// body depends on the clock (past showtimes are struck through, the next one
// carries a marker), so it has to be re-rendered whenever a showtime passes.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/0x0BSoD/alfieriBot/internal/model"
	"github.com/0x0BSoD/alfieriBot/internal/storage"
)

type ScheduleStorage interface {
	Latest(ctx context.Context) (*model.Newsletter, error)
	Schedule(ctx context.Context, newsletterID int64) (*model.NewsletterEntry, error)
	NextEntryDate(ctx context.Context, newsletterID int64, after time.Time) (time.Time, error)
}

type MessageRefresher interface {
	Render(entry *model.NewsletterEntry, now time.Time) string
	Refresh(messageID int, text string) error
}

type Scheduler struct {
	store     ScheduleStorage
	refresher MessageRefresher

	fallbackInterval time.Duration
	wake             chan struct{}
}

func New(
	store ScheduleStorage,
	refresher MessageRefresher,
	fallbackInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		store:            store,
		refresher:        refresher,
		fallbackInterval: fallbackInterval,
		wake:             make(chan struct{}, 1),
	}
}

// Wake makes the running loop refresh now instead of waiting out its timer.
// The webhook calls it after importing a newsletter, so the loop re-arms on
// the new schedule right away. Safe to call from any goroutine; calls
// coalesce while a refresh is pending.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start refreshes the latest newsletter's message, then sleeps until just
// after its next showtime and refreshes again. When no showtime is left to
// wake for it polls at the fallback interval instead. Runs until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		wait := s.refreshOnce(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if wait < time.Second {
			wait = time.Second
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// refreshOnce re-renders the current schedule message and reports how long to
// sleep before the next refresh.
func (s *Scheduler) refreshOnce(ctx context.Context) time.Duration {
	now := time.Now()

	newsletter, err := s.store.Latest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return s.fallbackInterval
	}
	if err != nil {
		log.Printf("[ERROR] failed to load latest newsletter: %v", err)
		return s.fallbackInterval
	}
	if newsletter.MessageID == nil {
		log.Printf("[INFO] newsletter %d has no channel message yet, nothing to refresh", newsletter.ID)
		return s.fallbackInterval
	}

	entry, err := s.store.Schedule(ctx, newsletter.ID)
	if err != nil {
		log.Printf("[ERROR] failed to load schedule for newsletter %d: %v", newsletter.ID, err)
		return s.fallbackInterval
	}

	if err := s.refresher.Refresh(int(*newsletter.MessageID), s.refresher.Render(entry, now)); err != nil {
		log.Printf("[ERROR] failed to refresh message %d: %v", *newsletter.MessageID, err)
	}

	next, err := s.store.NextEntryDate(ctx, newsletter.ID, now)
	if errors.Is(err, storage.ErrNotFound) {
		return s.fallbackInterval
	}
	if err != nil {
		log.Printf("[ERROR] failed to find next showtime for newsletter %d: %v", newsletter.ID, err)
		return s.fallbackInterval
	}

	// Wake a beat after the showtime so the render sees it as past.
	return next.Sub(now) + time.Second
}
