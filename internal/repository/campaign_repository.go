package repository

import (
	"database/sql"

	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	ListActive() ([]*model.Campaign, error)
	GetByID(id int) (*model.Campaign, error)
	UpdateStatus(campaignID int, status string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, status, template_id, email_daily, email_hourly,
       voice_daily, voice_hourly, start_hour, end_hour, timezone, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.Status, &c.TemplateID, &c.EmailDaily, &c.EmailHourly,
		&c.VoiceDaily, &c.VoiceHourly, &c.StartHour, &c.EndHour, &c.Timezone,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFound("campaign", id)
	}
	return c, err
}

func (r *CampaignRepository) ListActive() ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status='active' ORDER BY id`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.DB.Exec(query, status, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
