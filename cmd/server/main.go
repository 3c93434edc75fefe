// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/joho/godotenv"

	"github.com/prospectpipe/outreach-backend/internal/app"
	"github.com/prospectpipe/outreach-backend/internal/config"
	"github.com/prospectpipe/outreach-backend/internal/controller"
	"github.com/prospectpipe/outreach-backend/internal/db"
	"github.com/prospectpipe/outreach-backend/internal/logging"
	"github.com/prospectpipe/outreach-backend/internal/queue"
)

func main() {
	// No .env is fine; the OS environment wins anyway.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.Env)
	defer log.Sync()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "err", err)
	}
	defer conn.Close()

	application, err := app.Build(cfg, conn, log)
	if err != nil {
		log.Fatalw("failed to build application", "err", err)
	}

	q := queue.NewInMemoryQueue(log)

	webhooks := &controller.WebhookController{
		Prospects:   application.Prospects,
		Touchpoints: application.Touchpoints,
		Events:      application.Events,
		Calls:       application.Calls,
		CRM:         application.CRM,
		CalendarID:  cfg.CRMCalendarID,
		Log:         log,
	}
	runs := &controller.RunController{
		Runner:      application.Runner,
		Queue:       q,
		Touchpoints: application.Touchpoints,
		Log:         log,
	}
	runs.StartSubscriber()

	router := controller.NewRouter(webhooks, runs)

	log.Infow("server running", "addr", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, router); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}
