// Package notify publishes the post-extraction notification events:
// newly pending-categorization processes and new documents grouped by
// signer. Adapted from a RabbitMQ topic-exchange event publisher,
// generalized from a generic per-event-type publish call into the two
// fixed notifications the extraction pipeline emits.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/conectasei/core/internal/logger"
)

const exchangeName = "conectasei.extraction.events"

const (
	EventPendingCategorization = "extraction.pending_categorization"
	EventNewDocuments          = "extraction.new_documents"
)

// PendingCategorizationEvent lists processes a run pushed into
// category_status=pending.
type PendingCategorizationEvent struct {
	TenantID        string   `json:"tenant_id"`
	TaskID          string   `json:"task_id"`
	ProcessNumbers  []string `json:"process_numbers"`
}

// NewDocumentsEvent groups newly discovered documents by signer.
type NewDocumentsEvent struct {
	TenantID        string              `json:"tenant_id"`
	TaskID          string              `json:"task_id"`
	BySigner        map[string][]string `json:"by_signer"` // signer -> document numbers
}

// Dispatcher publishes extraction-run notifications to a durable topic
// exchange. A nil Dispatcher is valid and a no-op, so deployments that
// run without a message broker configured simply skip notifications.
type Dispatcher struct {
	channel *amqp.Channel
	log     *logger.Logger
}

// New connects to amqpURL and declares the extraction-events exchange.
// An empty amqpURL means notifications are disabled; New returns
// (nil, nil) in that case.
func New(amqpURL string, log *logger.Logger) (*Dispatcher, error) {
	if amqpURL == "" {
		return nil, nil
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("connect to notification broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open notification channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare notification exchange: %w", err)
	}

	return &Dispatcher{channel: ch, log: log}, nil
}

// PendingCategorization publishes the list of processes that need
// manual categorization after a run. Publish failures are logged, not
// returned — a notification outage must never fail the extraction run
// that produced it; notifications run as a post-phase hook.
func (d *Dispatcher) PendingCategorization(ctx context.Context, event PendingCategorizationEvent) {
	if d == nil || len(event.ProcessNumbers) == 0 {
		return
	}
	d.publish(ctx, EventPendingCategorization, event)
}

// NewDocuments publishes the signer-grouped new-document map for a run.
func (d *Dispatcher) NewDocuments(ctx context.Context, event NewDocumentsEvent) {
	if d == nil || len(event.BySigner) == 0 {
		return
	}
	d.publish(ctx, EventNewDocuments, event)
}

func (d *Dispatcher) publish(ctx context.Context, routingKey string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.LogError(ctx, err, "failed to marshal notification payload")
		return
	}

	err = d.channel.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		d.log.LogError(ctx, err, "failed to publish notification")
		return
	}
	d.log.Scoped(ctx).Debug("notification published", "routing_key", routingKey)
}
