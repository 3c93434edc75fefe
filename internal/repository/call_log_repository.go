package repository

import (
	"database/sql"
	"time"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

type CallLogRepositoryInterface interface {
	Record(c *model.CallLog) error
	LastCall(prospectID int) (*model.CallLog, error)
	ListByProspect(prospectID int, limit int) ([]*model.CallLog, error)
}

type CallLogRepository struct {
	DB *sql.DB
}

const callLogColumns = `id, prospect_id, campaign_id, provider_call_id, persona_id,
       status, outcome, duration_seconds, transcript_ref, booked, callback_at, created_at`

func scanCallLog(row interface{ Scan(...any) error }) (*model.CallLog, error) {
	var c model.CallLog
	err := row.Scan(
		&c.ID, &c.ProspectID, &c.CampaignID, &c.ProviderCallID, &c.PersonaID,
		&c.Status, &c.Outcome, &c.DurationSeconds, &c.TranscriptRef, &c.Booked,
		&c.CallbackAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CallLogRepository) Record(c *model.CallLog) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO call_logs (prospect_id, campaign_id, provider_call_id, persona_id,
            status, outcome, duration_seconds, transcript_ref, booked, callback_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		c.ProspectID, c.CampaignID, c.ProviderCallID, c.PersonaID,
		c.Status, c.Outcome, c.DurationSeconds, c.TranscriptRef, c.Booked,
		c.CallbackAt, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CallLogRepository) LastCall(prospectID int) (*model.CallLog, error) {
	query := `SELECT ` + callLogColumns + `
        FROM call_logs WHERE prospect_id=$1 ORDER BY created_at DESC LIMIT 1`
	c, err := scanCallLog(r.DB.QueryRow(query, prospectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CallLogRepository) ListByProspect(prospectID int, limit int) ([]*model.CallLog, error) {
	query := `SELECT ` + callLogColumns + `
        FROM call_logs WHERE prospect_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.DB.Query(query, prospectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*model.CallLog{}
	for rows.Next() {
		c, err := scanCallLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, c)
	}
	return logs, rows.Err()
}

var _ CallLogRepositoryInterface = (*CallLogRepository)(nil)
