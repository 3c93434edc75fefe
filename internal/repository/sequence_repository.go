package repository

import (
	"database/sql"
	"time"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

type SequenceRepositoryInterface interface {
	GetByProspect(prospectID, campaignID int) (*model.Sequence, error)
	ListActiveByProspect(prospectID int) ([]*model.Sequence, error)
	Create(s *model.Sequence) error
	Update(s *model.Sequence) error
}

type SequenceRepository struct {
	DB *sql.DB
}

const sequenceColumns = `id, prospect_id, campaign_id, template_id, current_step,
       next_execution_at, status, pause_reason, paused_by_event, completed_at,
       created_at, updated_at`

func scanSequence(row interface{ Scan(...any) error }) (*model.Sequence, error) {
	var s model.Sequence
	err := row.Scan(
		&s.ID, &s.ProspectID, &s.CampaignID, &s.TemplateID, &s.CurrentStep,
		&s.NextExecutionAt, &s.Status, &s.PauseReason, &s.PausedByEvent, &s.CompletedAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SequenceRepository) GetByProspect(prospectID, campaignID int) (*model.Sequence, error) {
	query := `SELECT ` + sequenceColumns + `
        FROM sequences WHERE prospect_id=$1 AND campaign_id=$2
        ORDER BY id DESC LIMIT 1`
	s, err := scanSequence(r.DB.QueryRow(query, prospectID, campaignID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (r *SequenceRepository) ListActiveByProspect(prospectID int) ([]*model.Sequence, error) {
	query := `SELECT ` + sequenceColumns + `
        FROM sequences WHERE prospect_id=$1 AND status='active'`
	rows, err := r.DB.Query(query, prospectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seqs := []*model.Sequence{}
	for rows.Next() {
		s, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, s)
	}
	return seqs, rows.Err()
}

func (r *SequenceRepository) Create(s *model.Sequence) error {
	s.CreatedAt = time.Now()
	if s.Status == "" {
		s.Status = model.SequenceActive
	}
	query := `
        INSERT INTO sequences (prospect_id, campaign_id, template_id, current_step,
            next_execution_at, status, pause_reason, paused_by_event, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		s.ProspectID, s.CampaignID, s.TemplateID, s.CurrentStep,
		s.NextExecutionAt, s.Status, s.PauseReason, s.PausedByEvent, s.CreatedAt,
	).Scan(&s.ID)
}

func (r *SequenceRepository) Update(s *model.Sequence) error {
	query := `
        UPDATE sequences
        SET current_step=$1, next_execution_at=$2, status=$3, pause_reason=$4,
            paused_by_event=$5, completed_at=$6, updated_at=NOW()
        WHERE id=$7
    `
	_, err := r.DB.Exec(query,
		s.CurrentStep, s.NextExecutionAt, s.Status, s.PauseReason,
		s.PausedByEvent, s.CompletedAt, s.ID,
	)
	return err
}

var _ SequenceRepositoryInterface = (*SequenceRepository)(nil)
