package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/alfieriBot/internal/model"
)

// septemberRange mirrors the golden subject: 25 settembre > 2 ottobre 2024.
func septemberRange(p *Parser) boundary {
	return boundary{
		lower: time.Date(2024, time.September, 25, 0, 0, 0, 0, p.Location),
		upper: time.Date(2024, time.October, 2, 23, 59, 59, 0, p.Location),
	}
}

func TestResolveDateEntries_DayOnlyPrefersLowerMonth(t *testing.T) {
	p := newTestParser(t)

	entries, err := p.resolveDateEntries([]dateToken{
		{day: 27, times: []showtime{{hour: 21, minute: 15}}},
	}, septemberRange(p))
	require.NoError(t, err)

	require.Equal(t, []model.DateEntry{
		{Date: time.Date(2024, time.September, 27, 21, 15, 0, 0, p.Location)},
	}, entries)
}

func TestResolveDateEntries_DayOnlyFallsToUpperMonth(t *testing.T) {
	p := newTestParser(t)

	entries, err := p.resolveDateEntries([]dateToken{
		{day: 1, times: []showtime{{hour: 17, minute: 30}}},
	}, septemberRange(p))
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, time.October, 1, 17, 30, 0, 0, p.Location), entries[0].Date)
}

func TestResolveDateEntries_BoundaryDaysAreInclusive(t *testing.T) {
	p := newTestParser(t)

	entries, err := p.resolveDateEntries([]dateToken{
		{day: 25, times: []showtime{{hour: 17, minute: 0}}},
		{day: 2, times: []showtime{{hour: 21, minute: 0}}},
	}, septemberRange(p))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, time.Date(2024, time.September, 25, 17, 0, 0, 0, p.Location), entries[0].Date)
	require.Equal(t, time.Date(2024, time.October, 2, 21, 0, 0, 0, p.Location), entries[1].Date)
}

func TestResolveDateEntries_FanOutSharesDayAndDetails(t *testing.T) {
	p := newTestParser(t)

	entries, err := p.resolveDateEntries([]dateToken{
		{day: 27, times: []showtime{{hour: 17, minute: 0}, {hour: 21, minute: 15}}, details: "versione originale"},
	}, septemberRange(p))
	require.NoError(t, err)

	require.Equal(t, []model.DateEntry{
		{Date: time.Date(2024, time.September, 27, 17, 0, 0, 0, p.Location), AdditionalDetails: "versione originale"},
		{Date: time.Date(2024, time.September, 27, 21, 15, 0, 0, p.Location), AdditionalDetails: "versione originale"},
	}, entries)
}

func TestResolveDateEntries_DayFittingNeitherMonthFails(t *testing.T) {
	p := newTestParser(t)

	// September 24 is before the range, October 24 after it.
	_, err := p.resolveDateEntries([]dateToken{
		{day: 24, times: []showtime{{hour: 21, minute: 0}}, raw: "24 ore 21:00"},
	}, septemberRange(p))

	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, "24 ore 21:00", semErr.Fragment)
	require.Contains(t, semErr.Msg, "unable to resolve a month for day 24")
}

func TestResolveDateEntries_ExplicitMonthInRange(t *testing.T) {
	p := newTestParser(t)

	entries, err := p.resolveDateEntries([]dateToken{
		{day: 2, month: time.October, times: []showtime{{hour: 17, minute: 0}}},
	}, septemberRange(p))
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, time.October, 2, 17, 0, 0, 0, p.Location), entries[0].Date)
}

func TestResolveDateEntries_ExplicitMonthOutOfRangeFails(t *testing.T) {
	p := newTestParser(t)

	_, err := p.resolveDateEntries([]dateToken{
		{day: 15, month: time.September, times: []showtime{{hour: 21, minute: 0}}, raw: "15 settembre ore 21:00"},
	}, septemberRange(p))

	var semErr *SemanticError
	require.ErrorAs(t, err, &semErr)
	require.Equal(t, "15 settembre ore 21:00", semErr.Fragment)
	require.Contains(t, semErr.Msg, "outside the newsletter range")
}

func TestResolveDateEntries_ExplicitMonthAcrossYearCrossover(t *testing.T) {
	p := newTestParser(t)
	b := boundary{
		lower: time.Date(2024, time.December, 27, 0, 0, 0, 0, p.Location),
		upper: time.Date(2025, time.January, 3, 23, 59, 59, 0, p.Location),
	}

	entries, err := p.resolveDateEntries([]dateToken{
		{day: 30, times: []showtime{{hour: 21, minute: 0}}},
		{day: 2, month: time.January, times: []showtime{{hour: 17, minute: 0}}},
	}, b)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, time.Date(2024, time.December, 30, 21, 0, 0, 0, p.Location), entries[0].Date)
	require.Equal(t, time.Date(2025, time.January, 2, 17, 0, 0, 0, p.Location), entries[1].Date)
}

func TestResolveDateEntries_InvalidShowtimeFails(t *testing.T) {
	p := newTestParser(t)

	for _, tok := range []dateToken{
		{day: 27, times: []showtime{{hour: 25, minute: 0}}, raw: "27 ore 25:00"},
		{day: 27, times: []showtime{{hour: 17, minute: 60}}, raw: "27 ore 17:60"},
	} {
		_, err := p.resolveDateEntries([]dateToken{tok}, septemberRange(p))

		var semErr *SemanticError
		require.ErrorAs(t, err, &semErr, "token %q", tok.raw)
		require.Contains(t, semErr.Msg, "invalid showtime")
	}
}
