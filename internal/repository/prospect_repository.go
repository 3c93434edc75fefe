package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

type ProspectRepositoryInterface interface {
	GetByID(id int) (*model.Prospect, error)
	FindByEmail(address string) (*model.Prospect, error)
	ListEligible(campaignID int, excludeStates []string) ([]*model.Prospect, error)
	UpdatePipelineState(id int, state string) error
	UpdateChannelState(id int, channel, state string) error
	StampLastTouch(id int, at time.Time) error
}

type ProspectRepository struct {
	DB *sql.DB
}

const prospectColumns = `id, campaign_id, first_name, last_name, company, email, phone,
       linkedin_url, timezone, pipeline_state, email_state, voice_state, score,
       last_touch_at, created_at, updated_at`

func scanProspect(row interface{ Scan(...any) error }) (*model.Prospect, error) {
	var p model.Prospect
	err := row.Scan(
		&p.ID, &p.CampaignID, &p.FirstName, &p.LastName, &p.Company, &p.Email, &p.Phone,
		&p.LinkedInURL, &p.Timezone, &p.PipelineState, &p.EmailState, &p.VoiceState, &p.Score,
		&p.LastTouchAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProspectRepository) GetByID(id int) (*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE id=$1`
	p, err := scanProspect(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *ProspectRepository) FindByEmail(address string) (*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE LOWER(email)=LOWER($1) LIMIT 1`
	p, err := scanProspect(r.DB.QueryRow(query, address))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListEligible returns a campaign's prospects whose pipeline state is not in
// the excluded (terminal) set, oldest last-touch first.
func (r *ProspectRepository) ListEligible(campaignID int, excludeStates []string) ([]*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + `
        FROM prospects
        WHERE campaign_id=$1 AND NOT (pipeline_state = ANY($2))
        ORDER BY last_touch_at NULLS FIRST, id`
	rows, err := r.DB.Query(query, campaignID, pq.Array(excludeStates))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prospects := []*model.Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

func (r *ProspectRepository) UpdatePipelineState(id int, state string) error {
	query := `UPDATE prospects SET pipeline_state=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, state, id)
	return err
}

func (r *ProspectRepository) UpdateChannelState(id int, channel, state string) error {
	var column string
	switch channel {
	case model.ChannelEmail:
		column = "email_state"
	case model.ChannelVoice:
		column = "voice_state"
	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
	query := fmt.Sprintf(`UPDATE prospects SET %s=$1, updated_at=NOW() WHERE id=$2`, column)
	_, err := r.DB.Exec(query, state, id)
	return err
}

func (r *ProspectRepository) StampLastTouch(id int, at time.Time) error {
	query := `UPDATE prospects SET last_touch_at=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, at, id)
	return err
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)
