// cmd/dialer/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/prospectpipe/outreach-backend/internal/app"
	"github.com/prospectpipe/outreach-backend/internal/config"
	"github.com/prospectpipe/outreach-backend/internal/db"
	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/logging"
	"github.com/prospectpipe/outreach-backend/internal/queue"
)

func main() {
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

	mq, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatalw("failed to connect to RabbitMQ", "err", err)
	}
	defer mq.Close()

	ch, err := mq.Channel()
	if err != nil {
		log.Fatalw("failed to open a channel", "err", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.CallAttemptsQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatalw("failed to declare queue", "err", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatalw("failed to register consumer", "err", err)
	}

	log.Infow("dialer running, waiting for call jobs")
	for d := range msgs {
		var job queue.CallJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			log.Warnw("invalid call job", "err", err)
			d.Ack(false)
			continue
		}

		if err := processJob(application, job, log); err != nil {
			if shouldRequeue(err, d.Redelivered) {
				d.Nack(false, true)
				continue
			}
			log.Warnw("call job not retried",
				"prospect_id", job.ProspectID, "err", err)
		}
		d.Ack(false)
	}
}

// shouldRequeue gives provider failures one requeue pass, keyed on the
// broker's redelivered flag. Business-rule skips are final for this run.
func shouldRequeue(err error, redelivered bool) bool {
	var skip *apperrors.SkipError
	if errors.As(err, &skip) {
		return false
	}
	return !redelivered
}

func processJob(application *app.App, job queue.CallJob, log *zap.SugaredLogger) error {
	prospect, err := application.Prospects.GetByID(job.ProspectID)
	if err != nil {
		return err
	}
	if prospect == nil {
		log.Warnw("call job for unknown prospect", "prospect_id", job.ProspectID)
		return nil
	}
	campaign, err := application.Campaigns.GetByID(job.CampaignID)
	if err != nil {
		return err
	}

	callLog, err := application.CallEngine.Attempt(context.Background(), prospect, campaign)
	if err != nil {
		return err
	}
	log.Infow("call attempt completed",
		"prospect_id", prospect.ID,
		"status", callLog.Status,
		"outcome", callLog.Outcome)
	return nil
}
