// Package reporter sends short failure notes to a Telegram admin chat, so a
// newsletter that failed to import is noticed before subscribers ask where
// the schedule went.
package reporter

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Reporter is nil-safe: if adminID is 0 or the receiver is nil, every
// notification is a no-op, so callers never have to guard.
type Reporter struct {
	bot     *tgbotapi.BotAPI
	adminID int64
}

func New(bot *tgbotapi.BotAPI, adminID int64) *Reporter {
	return &Reporter{bot: bot, adminID: adminID}
}

func (r *Reporter) Notify(msg string) {
	if r == nil || r.adminID == 0 {
		return
	}
	if _, err := r.bot.Send(tgbotapi.NewMessage(r.adminID, msg)); err != nil {
		slog.Error("failed to send admin notification", "err", err)
	}
}

// NotifyImportFailure reports a newsletter email the webhook could not turn
// into a channel post.
func (r *Reporter) NotifyImportFailure(subject string, err error) {
	r.Notify(fmt.Sprintf("newsletter import failed for %q: %v", subject, err))
}
