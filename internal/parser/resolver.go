package parser

import (
	"time"

	"github.com/0x0BSoD/alfieriBot/internal/model"
)

// resolveDateEntries turns the token groups of one schedule box into concrete
// showtimes. Day-only tokens are matched against the boundary months in two
// passes: tokens that fit neither month on the first pass are deferred and
// retried once before the parse fails. Tokens with an explicit month resolve
// directly and never defer.
func (p *Parser) resolveDateEntries(tokens []dateToken, b boundary) ([]model.DateEntry, error) {
	var entries []model.DateEntry
	var deferred []dateToken

	for _, tok := range tokens {
		resolved, uncertain, err := p.resolveToken(tok, b)
		if err != nil {
			return nil, err
		}
		if uncertain {
			deferred = append(deferred, tok)
			continue
		}
		entries = append(entries, resolved...)
	}

	for _, tok := range deferred {
		resolved, uncertain, err := p.resolveToken(tok, b)
		if err != nil {
			return nil, err
		}
		if uncertain {
			return nil, newSemanticError(tok.raw, "unable to resolve a month for day %d within %s > %s",
				tok.day, b.lower.Format("2006-01-02"), b.upper.Format("2006-01-02"))
		}
		entries = append(entries, resolved...)
	}

	return entries, nil
}

// resolveToken resolves one token into one DateEntry per showtime. The
// uncertain return marks a day-only token that fits neither boundary month.
func (p *Parser) resolveToken(tok dateToken, b boundary) ([]model.DateEntry, bool, error) {
	day, uncertain, err := p.resolveDay(tok, b)
	if err != nil || uncertain {
		return nil, uncertain, err
	}

	entries := make([]model.DateEntry, 0, len(tok.times))
	for _, st := range tok.times {
		if st.hour > 23 || st.minute > 59 {
			return nil, false, newSemanticError(tok.raw, "invalid showtime %d:%02d", st.hour, st.minute)
		}
		entries = append(entries, model.DateEntry{
			Date:              time.Date(day.Year(), day.Month(), day.Day(), st.hour, st.minute, 0, 0, p.Location),
			AdditionalDetails: tok.details,
		})
	}
	return entries, false, nil
}

// resolveDay picks the calendar day a token refers to.
//
// With an explicit month the day resolves within the boundary years (lower's
// year first, upper's for a range that crosses into January); out of range is
// an error outright. Without a month, the candidate built from the lower
// boundary's month wins if it falls inside the range, then the one from the
// upper boundary's; neither fitting defers the token.
func (p *Parser) resolveDay(tok dateToken, b boundary) (time.Time, bool, error) {
	if tok.month != 0 {
		years := []int{b.lower.Year()}
		if b.upper.Year() != b.lower.Year() {
			years = append(years, b.upper.Year())
		}
		for _, year := range years {
			d, err := dateInLocation(year, tok.month, tok.day, p.Location)
			if err == nil && b.contains(d) {
				return d, false, nil
			}
		}
		return time.Time{}, false, newSemanticError(tok.raw, "date is outside the newsletter range %s > %s",
			b.lower.Format("2006-01-02"), b.upper.Format("2006-01-02"))
	}

	if d, err := dateInLocation(b.lower.Year(), b.lower.Month(), tok.day, p.Location); err == nil && b.contains(d) {
		return d, false, nil
	}
	if d, err := dateInLocation(b.upper.Year(), b.upper.Month(), tok.day, p.Location); err == nil && b.contains(d) {
		return d, false, nil
	}
	return time.Time{}, true, nil
}

func (b boundary) contains(d time.Time) bool {
	return !d.Before(b.lower) && !d.After(b.upper)
}
