package rabbitmq

import (
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"farm-marketplace/config"
	"farm-marketplace/models"
)

// Message types carried on the orders exchange.
const (
	MessageTypeOrderEvent     = "order_event"
	MessageTypeShipmentNotice = "shipment_notice"
)

// Notifier is the boundary the controllers publish through. Delivery is
// best effort: callers log failures and carry on.
type Notifier interface {
	PublishOrderEvent(event models.OrderEvent) error
	PublishShipmentNotice(notice models.ShipmentNotice) error
}

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

func (r *RabbitMQ) SetupQueues() error {
	// Dead-letter exchange and queue.
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.DeadLetterQueue+"_exchange",
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-queue-type": "classic",
		},
	); err != nil {
		return err
	}

	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue, // matches x-dead-letter-routing-key below
		r.Cfg.DeadLetterQueue+"_exchange",
		false,
		nil,
	); err != nil {
		return err
	}

	// Orders exchange and the main queue, failures routed to the DLX.
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.OrderExchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return err
	}

	if _, err := r.Channel.QueueDeclare(
		r.Cfg.OrderQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    r.Cfg.DeadLetterQueue + "_exchange",
			"x-dead-letter-routing-key": r.Cfg.DeadLetterQueue,
		},
	); err != nil {
		return err
	}

	if err := r.Channel.QueueBind(
		r.Cfg.OrderQueue,
		"",
		r.Cfg.OrderExchange,
		false,
		nil,
	); err != nil {
		return err
	}

	return nil
}

func (r *RabbitMQ) PublishOrderEvent(event models.OrderEvent) error {
	return r.publish(MessageTypeOrderEvent, event)
}

func (r *RabbitMQ) PublishShipmentNotice(notice models.ShipmentNotice) error {
	return r.publish(MessageTypeShipmentNotice, notice)
}

func (r *RabbitMQ) publish(messageType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         messageType,
		Body:         body,
	}

	return r.Channel.Publish(
		r.Cfg.OrderExchange,
		"",
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}
