// Package notifier turns a parsed newsletter into the channel post and keeps
// that post current: the schedule is published once and then edited in place
// as showtimes pass.
package notifier

import (
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/0x0BSoD/alfieriBot/internal/botkit/markup"
	"github.com/0x0BSoD/alfieriBot/internal/model"
)

type Notifier struct {
	bot       *tgbotapi.BotAPI
	channelID int64
	location  *time.Location
}

func New(bot *tgbotapi.BotAPI, channelID int64, location *time.Location) *Notifier {
	return &Notifier{
		bot:       bot,
		channelID: channelID,
		location:  location,
	}
}

var (
	weekdaysShort = [...]string{"dom", "lun", "mar", "mer", "gio", "ven", "sab"}
	monthsShort   = [...]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"}
)

// Render lays the schedule out as one MarkdownV2 message: a bold line per
// film, one line per showtime below it. Showtimes already over are struck
// through and the next upcoming one carries a marker, so the same render
// called later in the week produces the updated message body.
func (n *Notifier) Render(entry *model.NewsletterEntry, now time.Time) string {
	next, hasNext := nextShowtime(entry, now)

	var (
		b      strings.Builder
		marked bool
	)
	for i, program := range entry.ProgrammingEntries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("*" + markup.EscapeForMarkdown(program.Title) + "*")

		for _, date := range program.DateEntries {
			b.WriteString("\n")
			line := markup.EscapeForMarkdown(n.formatShowtime(date))
			switch {
			case date.Date.Before(now):
				b.WriteString("~" + line + "~")
			case hasNext && !marked && date.Date.Equal(next):
				marked = true
				b.WriteString("▶ " + line)
			default:
				b.WriteString(line)
			}
		}
	}

	if entry.NewsletterLink != "" {
		b.WriteString("\n\n[Guarda la newsletter nel browser](" +
			markup.EscapeForMarkdown(entry.NewsletterLink) + ")")
	}

	return b.String()
}

// Publish sends the rendered schedule to the channel and returns the Telegram
// message ID to edit later.
func (n *Notifier) Publish(text string) (int, error) {
	log.Printf("[INFO] publishing schedule to channel %d", n.channelID)

	msg := tgbotapi.NewMessage(n.channelID, text)
	msg.ParseMode = "MarkdownV2"

	sent, err := n.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send schedule message: %w", err)
	}

	return sent.MessageID, nil
}

// Refresh replaces the body of an already published schedule message.
func (n *Notifier) Refresh(messageID int, text string) error {
	log.Printf("[INFO] refreshing schedule message %d", messageID)

	edit := tgbotapi.NewEditMessageText(n.channelID, messageID, text)
	edit.ParseMode = "MarkdownV2"

	if _, err := n.bot.Send(edit); err != nil {
		// Telegram rejects edits that leave the message byte-identical.
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit schedule message %d: %w", messageID, err)
	}

	return nil
}

func (n *Notifier) formatShowtime(e model.DateEntry) string {
	d := e.Date.In(n.location)
	line := fmt.Sprintf("%s %d %s ore %s",
		weekdaysShort[d.Weekday()], d.Day(), monthsShort[d.Month()-1], d.Format("15:04"))
	if e.AdditionalDetails != "" {
		line += " " + e.AdditionalDetails
	}
	return line
}

func nextShowtime(entry *model.NewsletterEntry, now time.Time) (time.Time, bool) {
	var next time.Time
	for _, program := range entry.ProgrammingEntries {
		for _, date := range program.DateEntries {
			if date.Date.Before(now) {
				continue
			}
			if next.IsZero() || date.Date.Before(next) {
				next = date.Date
			}
		}
	}
	return next, !next.IsZero()
}
