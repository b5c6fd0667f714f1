// Package parser extracts a cinema programming schedule from the Spazio
// Alfieri newsletter email. The subject line names an explicit date range; the
// HTML body holds one schedule box per film whose date lines often name only a
// day of month. The parser resolves those day-only dates against the subject
// range and returns the full schedule, or fails as a whole: a partial
// newsletter is never produced, so a template or content change surfaces as an
// operator-visible error instead of a silently incomplete channel post.
package parser

import (
	"fmt"
	"time"

	"github.com/0x0BSoD/alfieriBot/internal/model"
)

// Parser is safe for concurrent use once configured; Parse performs no I/O and
// keeps no state between calls.
type Parser struct {
	Selectors Selectors
	// Location anchors every produced timestamp; the newsletter is implicitly
	// Europe/Rome.
	Location *time.Location
	// Now supplies the clock used to pick the boundary year and is the only
	// thing that makes two parses of the same input differ. Tests pin it.
	Now func() time.Time
}

func New() *Parser {
	return &Parser{
		Selectors: DefaultSelectors(),
		Location:  rome(),
		Now:       time.Now,
	}
}

// Parse turns one newsletter email into its schedule. Both arguments are the
// raw strings handed over by the inbound-mail webhook: the subject line and
// the HTML body.
func (p *Parser) Parse(subject, htmlBody string) (*model.NewsletterEntry, error) {
	bounds, err := p.parseSubjectLine(subject)
	if err != nil {
		return nil, fmt.Errorf("parse subject line %q: %w", subject, err)
	}

	link, boxes, err := p.walkDocument(htmlBody)
	if err != nil {
		return nil, err
	}

	programs := make([]model.ProgrammingEntry, 0, len(boxes))
	for _, box := range boxes {
		tokens, err := parseScheduleText(box.text)
		if err != nil {
			return nil, fmt.Errorf("schedule box for %q: %w", box.title, err)
		}
		entries, err := p.resolveDateEntries(tokens, bounds)
		if err != nil {
			return nil, fmt.Errorf("schedule box for %q: %w", box.title, err)
		}
		programs = append(programs, model.ProgrammingEntry{Title: box.title, DateEntries: entries})
	}

	return &model.NewsletterEntry{
		ProgrammingEntries: programs,
		NewsletterLink:     link,
	}, nil
}
