// Package model defines the data structures used in the alfieriBot application: the
// NewsletterEntry/ProgrammingEntry/DateEntry values produced by the parser, and the
// Newsletter/Program/Entry rows they are persisted as.
package model

import "time"

// NewsletterEntry is the result of parsing one newsletter email.
type NewsletterEntry struct {
	ProgrammingEntries []ProgrammingEntry
	NewsletterLink     string
}

// ProgrammingEntry holds the showtimes for a single title, in the order the
// title appears in the email.
type ProgrammingEntry struct {
	Title       string
	DateEntries []DateEntry
}

// DateEntry is a single showtime. Date is anchored to Europe/Rome.
// AdditionalDetails is the trailing free text of the schedule line ("" if none),
// e.g. a note about the screening being in the original language.
type DateEntry struct {
	Date              time.Time
	AdditionalDetails string
}

type Newsletter struct {
	ID        int64
	Link      string
	MessageID *int64
	CreatedAt time.Time
}

type Program struct {
	ID           int64
	NewsletterID int64
	Title        string
}

type Entry struct {
	ID        int64
	ProgramID int64
	Date      time.Time
	Details   *string
}
