package repository

import (
	"database/sql"
	"time"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

type TouchpointRepositoryInterface interface {
	Record(t *model.Touchpoint) error
	GetByID(id int) (*model.Touchpoint, error)
	ListByProspect(prospectID int) ([]*model.Touchpoint, error)
	CountForDay(prospectID int, day time.Time) (int, error)
	ListUnprocessedReplies(campaignID int) ([]*model.Touchpoint, error)
	MarkReplyProcessed(id int) error
	SetOpened(id int, at time.Time) error
	SetReplied(id int, at time.Time) error
	ListUnrepliedOpensBefore(campaignID int, cutoff time.Time) ([]*model.Touchpoint, error)
	StatsByOutcome(campaignID int) (map[string]int, error)
}

type TouchpointRepository struct {
	DB *sql.DB
}

const touchpointColumns = `id, prospect_id, campaign_id, channel, action, content,
       outcome, metadata, sent_at, opened_at, replied_at, reply_processed`

func scanTouchpoint(row interface{ Scan(...any) error }) (*model.Touchpoint, error) {
	var t model.Touchpoint
	err := row.Scan(
		&t.ID, &t.ProspectID, &t.CampaignID, &t.Channel, &t.Action, &t.Content,
		&t.Outcome, &t.Metadata, &t.SentAt, &t.OpenedAt, &t.RepliedAt, &t.ReplyProcessed,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TouchpointRepository) Record(t *model.Touchpoint) error {
	if t.SentAt.IsZero() {
		t.SentAt = time.Now()
	}
	query := `
        INSERT INTO touchpoints (prospect_id, campaign_id, channel, action, content,
            outcome, metadata, sent_at, opened_at, replied_at, reply_processed)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		t.ProspectID, t.CampaignID, t.Channel, t.Action, t.Content,
		t.Outcome, t.Metadata, t.SentAt, t.OpenedAt, t.RepliedAt, t.ReplyProcessed,
	).Scan(&t.ID)
}

func (r *TouchpointRepository) GetByID(id int) (*model.Touchpoint, error) {
	query := `SELECT ` + touchpointColumns + ` FROM touchpoints WHERE id=$1`
	t, err := scanTouchpoint(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TouchpointRepository) ListByProspect(prospectID int) ([]*model.Touchpoint, error) {
	query := `SELECT ` + touchpointColumns + ` FROM touchpoints WHERE prospect_id=$1 ORDER BY sent_at`
	return r.queryList(query, prospectID)
}

// CountForDay backs the single-touch-per-day rule.
func (r *TouchpointRepository) CountForDay(prospectID int, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)
	var count int
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM touchpoints WHERE prospect_id=$1 AND sent_at >= $2 AND sent_at < $3`,
		prospectID, start, end,
	).Scan(&count)
	return count, err
}

// ListUnprocessedReplies finds touchpoints whose replied_at arrived (usually
// via webhook) but the detector has not reacted to yet.
func (r *TouchpointRepository) ListUnprocessedReplies(campaignID int) ([]*model.Touchpoint, error) {
	query := `SELECT ` + touchpointColumns + `
        FROM touchpoints
        WHERE campaign_id=$1 AND replied_at IS NOT NULL AND reply_processed=false
        ORDER BY replied_at`
	return r.queryList(query, campaignID)
}

func (r *TouchpointRepository) MarkReplyProcessed(id int) error {
	_, err := r.DB.Exec(`UPDATE touchpoints SET reply_processed=true WHERE id=$1`, id)
	return err
}

func (r *TouchpointRepository) SetOpened(id int, at time.Time) error {
	_, err := r.DB.Exec(`UPDATE touchpoints SET opened_at=$1 WHERE id=$2 AND opened_at IS NULL`, at, id)
	return err
}

func (r *TouchpointRepository) SetReplied(id int, at time.Time) error {
	_, err := r.DB.Exec(`UPDATE touchpoints SET replied_at=$1 WHERE id=$2 AND replied_at IS NULL`, at, id)
	return err
}

// ListUnrepliedOpensBefore returns escalation candidates: opened before the
// cutoff with no reply recorded.
func (r *TouchpointRepository) ListUnrepliedOpensBefore(campaignID int, cutoff time.Time) ([]*model.Touchpoint, error) {
	query := `SELECT ` + touchpointColumns + `
        FROM touchpoints
        WHERE campaign_id=$1 AND opened_at IS NOT NULL AND opened_at < $2 AND replied_at IS NULL`
	return r.queryList(query, campaignID, cutoff)
}

func (r *TouchpointRepository) StatsByOutcome(campaignID int) (map[string]int, error) {
	rows, err := r.DB.Query(
		`SELECT outcome, COUNT(*) FROM touchpoints WHERE campaign_id=$1 GROUP BY outcome`,
		campaignID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}

func (r *TouchpointRepository) queryList(query string, args ...any) ([]*model.Touchpoint, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	touches := []*model.Touchpoint{}
	for rows.Next() {
		t, err := scanTouchpoint(rows)
		if err != nil {
			return nil, err
		}
		touches = append(touches, t)
	}
	return touches, rows.Err()
}

var _ TouchpointRepositoryInterface = (*TouchpointRepository)(nil)
