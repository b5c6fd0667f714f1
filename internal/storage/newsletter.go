// Package storage persists parsed newsletters in Postgres. A newsletter owns
// its programs, a program owns its showtime entries; Store writes the whole
// tree in one transaction so a crash never leaves a half-imported newsletter.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/0x0BSoD/alfieriBot/internal/model"
)

var (
	// ErrAlreadyStored reports a link that is already in the database.
	// Mailgun retries webhook deliveries, so this is ordinary traffic.
	ErrAlreadyStored = errors.New("newsletter already stored")

	ErrNotFound = errors.New("newsletter not found")
)

type NewsletterPostgresStorage struct {
	db *sqlx.DB
}

func NewNewsletterStorage(db *sqlx.DB) *NewsletterPostgresStorage {
	return &NewsletterPostgresStorage{db: db}
}

// Store inserts a parsed newsletter with all its programs and showtime
// entries. The newsletter link is the dedup key: storing the same link twice
// returns ErrAlreadyStored and writes nothing.
func (s *NewsletterPostgresStorage) Store(ctx context.Context, entry *model.NewsletterEntry) (*model.Newsletter, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var newsletter dbNewsletter
	err = tx.GetContext(ctx, &newsletter,
		`INSERT INTO newsletter (link) VALUES ($1)
		 ON CONFLICT (link) DO NOTHING
		 RETURNING id, link, message_id, created_at`,
		entry.NewsletterLink,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyStored
	}
	if err != nil {
		return nil, fmt.Errorf("store newsletter: %w", err)
	}

	for _, program := range entry.ProgrammingEntries {
		var programID int64
		if err := tx.GetContext(ctx, &programID,
			`INSERT INTO program (newsletter_id, title) VALUES ($1, $2) RETURNING id`,
			newsletter.ID, program.Title,
		); err != nil {
			return nil, fmt.Errorf("store program %q: %w", program.Title, err)
		}

		for _, date := range program.DateEntries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO entry (program_id, date, details) VALUES ($1, $2, $3)`,
				programID, date.Date, lo.EmptyableToPtr(date.AdditionalDetails),
			); err != nil {
				return nil, fmt.Errorf("store entry for %q: %w", program.Title, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	stored := newsletter.toModel()
	return &stored, nil
}

// SetMessageID records the Telegram message the newsletter was published as,
// so later showtime refreshes can edit it in place.
func (s *NewsletterPostgresStorage) SetMessageID(ctx context.Context, newsletterID, messageID int64) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx,
		`UPDATE newsletter SET message_id = $2 WHERE id = $1`,
		newsletterID, messageID,
	)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Latest returns the most recently imported newsletter.
func (s *NewsletterPostgresStorage) Latest(ctx context.Context) (*model.Newsletter, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var newsletter dbNewsletter
	err = conn.GetContext(ctx, &newsletter,
		`SELECT id, link, message_id, created_at FROM newsletter
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	latest := newsletter.toModel()
	return &latest, nil
}

// Schedule reassembles the full parsed schedule of a stored newsletter, with
// programs and their entries in original import order.
func (s *NewsletterPostgresStorage) Schedule(ctx context.Context, newsletterID int64) (*model.NewsletterEntry, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var link string
	err = conn.GetContext(ctx, &link, `SELECT link FROM newsletter WHERE id = $1`, newsletterID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var programs []dbProgram
	if err := conn.SelectContext(ctx, &programs,
		`SELECT id, title FROM program WHERE newsletter_id = $1 ORDER BY id`,
		newsletterID,
	); err != nil {
		return nil, err
	}

	var entries []dbEntry
	if err := conn.SelectContext(ctx, &entries,
		`SELECT e.program_id, e.date, e.details
		 FROM entry e JOIN program p ON p.id = e.program_id
		 WHERE p.newsletter_id = $1 ORDER BY e.id`,
		newsletterID,
	); err != nil {
		return nil, err
	}

	byProgram := make(map[int64][]model.DateEntry, len(programs))
	for _, e := range entries {
		byProgram[e.ProgramID] = append(byProgram[e.ProgramID], model.DateEntry{
			Date:              e.Date,
			AdditionalDetails: lo.FromPtr(e.Details),
		})
	}

	return &model.NewsletterEntry{
		NewsletterLink: link,
		ProgrammingEntries: lo.Map(programs, func(p dbProgram, _ int) model.ProgrammingEntry {
			return model.ProgrammingEntry{Title: p.Title, DateEntries: byProgram[p.ID]}
		}),
	}, nil
}

// NextEntryDate returns the first showtime of the newsletter after the given
// moment, or ErrNotFound once the whole schedule is in the past.
func (s *NewsletterPostgresStorage) NextEntryDate(ctx context.Context, newsletterID int64, after time.Time) (time.Time, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	var next time.Time
	err = conn.GetContext(ctx, &next,
		`SELECT e.date
		 FROM entry e JOIN program p ON p.id = e.program_id
		 WHERE p.newsletter_id = $1 AND e.date > $2
		 ORDER BY e.date LIMIT 1`,
		newsletterID, after,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	return next, nil
}

type dbNewsletter struct {
	ID        int64     `db:"id"`
	Link      string    `db:"link"`
	MessageID *int64    `db:"message_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (n dbNewsletter) toModel() model.Newsletter {
	return model.Newsletter{
		ID:        n.ID,
		Link:      n.Link,
		MessageID: n.MessageID,
		CreatedAt: n.CreatedAt,
	}
}

type dbProgram struct {
	ID    int64  `db:"id"`
	Title string `db:"title"`
}

type dbEntry struct {
	ProgramID int64     `db:"program_id"`
	Date      time.Time `db:"date"`
	Details   *string   `db:"details"`
}
