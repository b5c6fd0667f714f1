package parser

import (
	"strconv"
	"time"
	"unicode"
	"unicode/utf8"
)

// boundary is the inclusive date range announced by the subject line.
// lower is midnight of the first day, upper is 23:59:59 of the last.
type boundary struct {
	lower time.Time
	upper time.Time
}

// parseSubjectLine extracts the two boundary dates from a subject such as
// "Spazio Alfieri • programmazione 25 settembre > 2 ottobre". Only day numbers
// and Italian month names are significant; all other text is ignored. The year
// is taken from the clock, and a range that runs backwards (27 dicembre >
// 3 gennaio) rolls the second date into the next year.
func (p *Parser) parseSubjectLine(subject string) (boundary, error) {
	var (
		days   []int
		months []time.Month
	)

	for _, word := range subjectWords(subject) {
		if day, ok := parseDayNumber(word); ok {
			days = append(days, day)
			continue
		}
		month, ok := monthNumber(word)
		if !ok {
			continue
		}
		if len(days) == 0 || len(days) > 2 {
			return boundary{}, newSemanticError(word, "unexpected month with %d day numbers before it", len(days))
		}
		months = append(months, month)
	}

	if len(days) != 2 {
		return boundary{}, newSemanticError(subject, "expected two day numbers, got %d", len(days))
	}
	switch len(months) {
	case 1:
		// a single month covers both dates: "programmazione 12 > 19 marzo"
		months = append(months, months[0])
	case 2:
	default:
		return boundary{}, newSemanticError(subject, "expected one or two month names, got %d", len(months))
	}

	year := p.Now().In(p.Location).Year()

	lower, err := dateInLocation(year, months[0], days[0], p.Location)
	if err != nil {
		return boundary{}, err
	}
	upper, err := dateInLocation(year, months[1], days[1], p.Location)
	if err != nil {
		return boundary{}, err
	}

	// year crossover, e.g. dec 27 > jan 3
	if upper.Before(lower) {
		upper, err = dateInLocation(year+1, months[1], days[1], p.Location)
		if err != nil {
			return boundary{}, err
		}
	}

	upper = time.Date(upper.Year(), upper.Month(), upper.Day(), 23, 59, 59, 0, p.Location)

	return boundary{lower: lower, upper: upper}, nil
}

// parseDayNumber accepts runs of one or two digits; anything longer is a year
// or other noise.
func parseDayNumber(word string) (int, bool) {
	if len(word) == 0 || len(word) > 2 {
		return 0, false
	}
	day, err := strconv.Atoi(word)
	if err != nil {
		return 0, false
	}
	return day, true
}

// subjectWords splits a subject line into digit runs and letter runs, dropping
// punctuation and whitespace.
func subjectWords(subject string) []string {
	var words []string
	for i := 0; i < len(subject); {
		r, size := utf8.DecodeRuneInString(subject[i:])
		switch {
		case isASCIIDigit(r):
			j := i
			for j < len(subject) && isASCIIDigit(rune(subject[j])) {
				j++
			}
			words = append(words, subject[i:j])
			i = j
		case unicode.IsLetter(r):
			j := i
			for j < len(subject) {
				rr, ss := utf8.DecodeRuneInString(subject[j:])
				if !unicode.IsLetter(rr) {
					break
				}
				j += ss
			}
			words = append(words, subject[i:j])
			i = j
		default:
			i += size
		}
	}
	return words
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
