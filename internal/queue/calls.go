package queue

import (
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
)

// CallAttemptsQueue is the durable amqp queue the dialer worker consumes.
const CallAttemptsQueue = "call_attempts"

// CallJob is one voice dispatch instruction.
type CallJob struct {
	ProspectID int       `json:"prospect_id"`
	CampaignID int       `json:"campaign_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// CallDispatcher publishes call jobs to RabbitMQ.
type CallDispatcher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	q    amqp.Queue
}

func NewCallDispatcher(url string) (*CallDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	q, err := ch.QueueDeclare(
		CallAttemptsQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &CallDispatcher{conn: conn, ch: ch, q: q}, nil
}

func (d *CallDispatcher) Dispatch(j CallJob) error {
	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}
	body, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return d.ch.Publish(
		"",
		d.q.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (d *CallDispatcher) Close() {
	if d.ch != nil {
		d.ch.Close()
	}
	if d.conn != nil {
		d.conn.Close()
	}
}
