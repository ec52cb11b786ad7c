package amqp

import (
	"time"

	"budgetbuddy/internal/events"

	"github.com/rabbitmq/amqp091-go"
)

// toPublishing wraps an event in a persistent JSON message. The event kind
// goes in Type so consumers can filter without decoding the body.
func toPublishing(ev events.LedgerEvent) (amqp091.Publishing, error) {
	body, err := ev.ToJSON()
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Kind),
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}

// fromDelivery decodes a delivery body into an event.
func fromDelivery(d amqp091.Delivery) (events.LedgerEvent, error) {
	return events.FromJSON(d.Body)
}
