package parser

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// The date-entry grammar, over the flattened text of one schedule box:
//
//	text       := (date_entry | other)*
//	date_entry := day_number month? time+ additional_details?
//	time       := hours ':' minutes
//
// Day numbers are one or two digits, months are the lowercase Italian names,
// minutes are exactly two digits. A few filler words ("ore", "e", "alle") may
// sit between a day and its times and between consecutive times, but an entry
// never crosses a line break: the newsletter template puts one date per line.
// Additional details are whatever trails the last showtime up to the end of
// the line or the start of the next entry. Everything the grammar does not
// recognize is skipped, with two exceptions that fail the parse instead of
// being dropped: a showtime with no day number owning it, and a day with an
// explicit month but no showtimes.

type showtime struct {
	hour   int
	minute int
}

// dateToken is one recognized date_entry. month is zero when the source text
// named only a day; that flag is what sends the token through the two-pass
// month resolution.
type dateToken struct {
	day     int
	month   time.Month
	times   []showtime
	details string
	raw     string
}

const (
	maxFillerBeforeTime   = 3
	maxFillerBetweenTimes = 2
)

func parseScheduleText(text string) ([]dateToken, error) {
	lexs := lexScheduleText(text)

	var tokens []dateToken
	for i := 0; i < len(lexs); {
		switch lexs[i].kind {
		case lexDay:
			tok, next, ok := scanDateEntry(text, lexs, i)
			if ok {
				tokens = append(tokens, tok)
				i = next
				continue
			}
			if tok.month != 0 {
				return nil, newGrammarError(tok.raw, "date entry is missing required data: [times]")
			}
			// a bare number in running text (a year suffix, a film duration)
			i++
		case lexTime:
			return nil, newGrammarError(lexs[i].text, "date entry is missing required data: [day]")
		default:
			i++
		}
	}
	return tokens, nil
}

// scanDateEntry tries to read a full date_entry starting at the day number at
// lexs[i]. On success it returns the token and the lexeme index to resume at.
// On failure it returns ok=false with tok.day and tok.month filled in, so the
// caller can distinguish a stray number from a month-bearing entry that lost
// its showtimes.
func scanDateEntry(text string, lexs []lexeme, i int) (tok dateToken, next int, ok bool) {
	tok = dateToken{day: lexs[i].day}
	j := i + 1
	if j < len(lexs) && lexs[j].kind == lexMonth {
		tok.month = lexs[j].month
		j++
	}

	k := j
	for skipped := 0; k < len(lexs) && lexs[k].kind == lexWord && skipped < maxFillerBeforeTime; skipped++ {
		k++
	}
	if k >= len(lexs) || lexs[k].kind != lexTime {
		tok.raw = strings.TrimSpace(text[lexs[i].start:lexs[j-1].end])
		return tok, 0, false
	}

	afterTimes := k
	for {
		tok.times = append(tok.times, showtime{hour: lexs[k].hour, minute: lexs[k].minute})
		afterTimes = k + 1

		m := k + 1
		for skipped := 0; m < len(lexs) && lexs[m].kind == lexWord && skipped < maxFillerBetweenTimes; skipped++ {
			m++
		}
		if m < len(lexs) && lexs[m].kind == lexTime {
			k = m
			continue
		}
		break
	}

	next = afterTimes
	for next < len(lexs) {
		if lexs[next].kind == lexNewline {
			break
		}
		if lexs[next].kind == lexDay {
			if _, _, starts := scanDateEntry(text, lexs, next); starts {
				break
			}
		}
		next++
	}

	detailsEnd := len(text)
	if next < len(lexs) {
		detailsEnd = lexs[next].start
	}
	tok.details = strings.TrimSpace(text[lexs[afterTimes-1].end:detailsEnd])
	tok.raw = strings.TrimSpace(text[lexs[i].start:detailsEnd])
	return tok, next, true
}

type lexKind int

const (
	lexWord lexKind = iota
	lexDay
	lexNumber
	lexMonth
	lexTime
	lexNewline
)

type lexeme struct {
	kind   lexKind
	text   string
	start  int
	end    int
	day    int
	month  time.Month
	hour   int
	minute int
}

// lexScheduleText splits a blob into newline markers, day numbers (1–2 digit
// runs), longer inert numbers, hh:mm times, month names and plain words.
// Punctuation that is glued to a word breaks into its own single-rune word, so
// "settembre," still lexes as a month.
func lexScheduleText(text string) []lexeme {
	var lexs []lexeme
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == '\n':
			lexs = append(lexs, lexeme{kind: lexNewline, text: "\n", start: i, end: i + 1})
			i++
		case unicode.IsSpace(r):
			i += size
		case isASCIIDigit(r):
			lexs = append(lexs, lexNumeric(text, i))
			i = lexs[len(lexs)-1].end
		case unicode.IsLetter(r):
			j := i
			for j < len(text) {
				rr, ss := utf8.DecodeRuneInString(text[j:])
				if !unicode.IsLetter(rr) {
					break
				}
				j += ss
			}
			word := text[i:j]
			lx := lexeme{kind: lexWord, text: word, start: i, end: j}
			if m, ok := monthNumber(word); ok {
				lx.kind = lexMonth
				lx.month = m
			}
			lexs = append(lexs, lx)
			i = j
		default:
			lexs = append(lexs, lexeme{kind: lexWord, text: string(r), start: i, end: i + size})
			i += size
		}
	}
	return lexs
}

// lexNumeric reads the digit run at text[i:] and classifies it: an hh:mm
// showtime when a colon and exactly two digits follow, a day number when the
// run is one or two digits, otherwise an inert number.
func lexNumeric(text string, i int) lexeme {
	j := i
	for j < len(text) && isASCIIDigit(rune(text[j])) {
		j++
	}
	run := text[i:j]

	if len(run) <= 2 && j < len(text) && text[j] == ':' {
		k := j + 1
		for k < len(text) && isASCIIDigit(rune(text[k])) {
			k++
		}
		if k-j-1 == 2 {
			hour, _ := strconv.Atoi(run)
			minute, _ := strconv.Atoi(text[j+1 : k])
			return lexeme{kind: lexTime, text: text[i:k], start: i, end: k, hour: hour, minute: minute}
		}
	}

	if len(run) <= 2 {
		day, _ := strconv.Atoi(run)
		return lexeme{kind: lexDay, text: run, start: i, end: j, day: day}
	}
	return lexeme{kind: lexNumber, text: run, start: i, end: j}
}
