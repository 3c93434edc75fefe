// internal/app/app.go
package app

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/prospectpipe/outreach-backend/internal/callengine"
	"github.com/prospectpipe/outreach-backend/internal/channel"
	"github.com/prospectpipe/outreach-backend/internal/config"
	"github.com/prospectpipe/outreach-backend/internal/coordinator"
	"github.com/prospectpipe/outreach-backend/internal/detector"
	"github.com/prospectpipe/outreach-backend/internal/provider"
	"github.com/prospectpipe/outreach-backend/internal/repository"
	"github.com/prospectpipe/outreach-backend/internal/sequence"
)

// App bundles the wired components every binary shares.
type App struct {
	Prospects   *repository.ProspectRepository
	Campaigns   *repository.CampaignRepository
	Sequences   *repository.SequenceRepository
	Touchpoints *repository.TouchpointRepository
	Rates       *repository.RateLimitRepository
	Calls       *repository.CallLogRepository
	Events      *repository.EventRepository

	Registry   *sequence.Registry
	Engine     *sequence.Engine
	CallEngine *callengine.Engine
	Detector   *detector.Detector
	Runner     *coordinator.Runner

	Voice  *provider.VoiceClient
	Email  *provider.EmailClient
	Warmup *provider.WarmupClient
	CRM    *provider.CRMClient
}

// Build wires repositories, providers and the orchestration core.
func Build(cfg *config.Config, db *sql.DB, log *zap.SugaredLogger) (*App, error) {
	a := &App{
		Prospects:   &repository.ProspectRepository{DB: db},
		Campaigns:   &repository.CampaignRepository{DB: db},
		Sequences:   &repository.SequenceRepository{DB: db},
		Touchpoints: &repository.TouchpointRepository{DB: db},
		Rates:       &repository.RateLimitRepository{DB: db},
		Calls:       &repository.CallLogRepository{DB: db},
		Events:      &repository.EventRepository{DB: db},
	}

	reg, err := sequence.NewRegistry()
	if err != nil {
		return nil, err
	}
	a.Registry = reg
	a.Engine = sequence.NewEngine(reg)

	a.Voice = &provider.VoiceClient{BaseURL: cfg.VoiceBaseURL, APIKey: cfg.VoiceAPIKey}
	a.Email = &provider.EmailClient{BaseURL: cfg.EmailBaseURL, APIKey: cfg.EmailAPIKey}
	a.Warmup = &provider.WarmupClient{BaseURL: cfg.WarmupBaseURL}
	a.CRM = &provider.CRMClient{BaseURL: cfg.CRMBaseURL, APIKey: cfg.CRMAPIKey}

	engineCfg := callengine.DefaultConfig()
	engineCfg.MinGap = cfg.CallMinGap
	engineCfg.CooldownDays = cfg.CooldownDays
	engineCfg.BreakerThreshold = cfg.BreakerThreshold
	engineCfg.DefaultStart = cfg.StartHour
	engineCfg.DefaultEnd = cfg.EndHour

	a.CallEngine = &callengine.Engine{
		Calls:     a.Calls,
		Prospects: a.Prospects,
		Rates:     a.Rates,
		Voice:     a.Voice,
		Router:    callengine.NewPersonaRouter(cfg.Personas),
		Cfg:       engineCfg,
		Log:       log,
	}

	a.Detector = &detector.Detector{
		Prospects:   a.Prospects,
		Sequences:   a.Sequences,
		Touchpoints: a.Touchpoints,
		Events:      a.Events,
		Mailbox:     a.Email,
		Window:      cfg.EscalationWindow,
		Log:         log,
	}

	emailAdapter := &channel.EmailAdapter{
		Sender:     a.Email,
		Warmup:     a.Warmup,
		Identities: cfg.SendIdentities,
		MinHealth:  cfg.MinHealthScore,
		Log:        log,
	}

	voiceAdapter := &channel.VoiceAdapter{Engine: a.CallEngine}

	a.Runner = &coordinator.Runner{
		Campaigns:   a.Campaigns,
		Prospects:   a.Prospects,
		Sequences:   a.Sequences,
		Touchpoints: a.Touchpoints,
		Rates:       a.Rates,
		Engine:      a.Engine,
		Detector:    a.Detector,
		Adapters: map[string]channel.Adapter{
			emailAdapter.Channel(): emailAdapter,
			voiceAdapter.Channel(): voiceAdapter,
		},
		Log: log,
	}

	return a, nil
}
