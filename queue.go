package main

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

const (
	analysesQueue          = "analyses"
	analysisUpdateExchange = "analysis_updates"
)

// declareTopology makes sure the job queue and the status exchange exist.
func declareTopology(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := declareAnalysesQueue(ch); err != nil {
		return err
	}
	return ch.ExchangeDeclare(
		analysisUpdateExchange, // name
		"topic",                // kind
		true,                   // durable
		false,                  // auto-delete
		false,                  // internal
		false,                  // no-wait
		nil,                    // arguments
	)
}

func declareAnalysesQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		analysesQueue, // queue name
		true,          // durable (survives broker restarts)
		false,         // auto-delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		return q, fmt.Errorf("failed to declare queue: %w", err)
	}
	return q, nil
}

// rabbitPublisher opens a short-lived channel per publish on a shared connection.
type rabbitPublisher struct {
	conn *amqp.Connection
}

func (p *rabbitPublisher) PublishJob(job AnalysisJob) error {
	return p.publish("", analysesQueue, job, amqp.Persistent)
}

func (p *rabbitPublisher) PublishUpdate(update AnalysisUpdate) error {
	routingKey := fmt.Sprintf("analysis.%s", update.AnalysisID)
	return p.publish(analysisUpdateExchange, routingKey, update, amqp.Transient)
}

func (p *rabbitPublisher) publish(exchange, routingKey string, payload any, mode uint8) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: mode,
			Body:         body,
		},
	)
}
