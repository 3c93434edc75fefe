package repository

import (
	"database/sql"
	"time"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

type EventRepositoryInterface interface {
	Insert(e *model.EngagementEvent) error
	Exists(channel, kind, sourceRef string) (bool, error)
	ListUnprocessed(kind string) ([]*model.EngagementEvent, error)
	MarkProcessed(id string) error
}

type EventRepository struct {
	DB *sql.DB
}

const eventColumns = `id, prospect_id, campaign_id, channel, kind, source_ref,
       processed, occurred_at, created_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.EngagementEvent, error) {
	var e model.EngagementEvent
	err := row.Scan(
		&e.ID, &e.ProspectID, &e.CampaignID, &e.Channel, &e.Kind, &e.SourceRef,
		&e.Processed, &e.OccurredAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert is idempotent on (channel, kind, source_ref); a duplicate signal
// from an overlapping scan is dropped by the unique constraint.
func (r *EventRepository) Insert(e *model.EngagementEvent) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO engagement_events (id, prospect_id, campaign_id, channel, kind,
            source_ref, processed, occurred_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (channel, kind, source_ref) DO NOTHING
    `
	_, err := r.DB.Exec(query,
		e.ID, e.ProspectID, e.CampaignID, e.Channel, e.Kind,
		e.SourceRef, e.Processed, e.OccurredAt, e.CreatedAt,
	)
	return err
}

func (r *EventRepository) Exists(channel, kind, sourceRef string) (bool, error) {
	var one int
	err := r.DB.QueryRow(
		`SELECT 1 FROM engagement_events WHERE channel=$1 AND kind=$2 AND source_ref=$3 LIMIT 1`,
		channel, kind, sourceRef,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *EventRepository) ListUnprocessed(kind string) ([]*model.EngagementEvent, error) {
	query := `SELECT ` + eventColumns + `
        FROM engagement_events WHERE kind=$1 AND processed=false ORDER BY occurred_at`
	rows, err := r.DB.Query(query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*model.EngagementEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *EventRepository) MarkProcessed(id string) error {
	_, err := r.DB.Exec(`UPDATE engagement_events SET processed=true WHERE id=$1`, id)
	return err
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
