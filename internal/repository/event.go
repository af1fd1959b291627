package repository

import (
	"context"
	"fmt"

	"kurskompass/scraper/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	SaveRecords(ctx context.Context, user string, records []domain.EventRecord) error
}

type eventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) EventRepository {
	return &eventRepository{
		db: db,
	}
}

// SaveRecords upserts one jsonb row per record, keyed by user, detail URL
// and group label (a grouped event produces one row per group).
func (r *eventRepository) SaveRecords(ctx context.Context, user string, records []domain.EventRecord) error {
	query := `
	INSERT INTO veranstaltungen (username, detail_url, gruppe, data)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (username, detail_url, gruppe)
	DO UPDATE SET data = EXCLUDED.data`

	for _, record := range records {
		if _, err := r.db.Exec(ctx, query, user, record.DetailURL, record.Group, record); err != nil {
			return fmt.Errorf("failed to save record %q: %w", record.Title, err)
		}
	}

	return nil
}
