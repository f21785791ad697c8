package service

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"

    "github.com/iliyamo/car-rental/internal/model"
    "github.com/iliyamo/car-rental/internal/queue"
)

// EventPublisher delivers booking events.  Callers treat failures as
// non fatal: the booking change has already been committed.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.BookingEvent) error
}

// NopPublisher discards events.  It is used when the queue is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

// AMQPPublisher publishes events to the durable booking queue.  Each call
// dials the broker, so a broker outage only costs the events published
// while it lasts.
type AMQPPublisher struct {
    URL string
    Log zerolog.Logger
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log zerolog.Logger) *AMQPPublisher {
    return &AMQPPublisher{URL: url, Log: log}
}

// Publish sends ev as a persistent JSON message routed to
// queue.BookingQueueName through the default exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        p.Log.Warn().Err(err).Msg("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Log.Warn().Err(err).Msg("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        queue.BookingQueueName, // name
        true,                   // durable
        false,                  // autoDelete
        false,                  // exclusive
        false,                  // noWait
        nil,                    // args
    ); err != nil {
        p.Log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.ID,
        Type:         ev.Type,
        Timestamp:    ev.OccurredAt,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue.BookingQueueName, false, false, pub); err != nil {
        p.Log.Warn().Err(err).Msg("rabbitmq: publish failed")
        return err
    }
    return nil
}

// NewBookingEvent builds an event of type typ describing b as changed by
// actorID at time at.
func NewBookingEvent(typ string, b *model.Booking, actorID uint64, at time.Time) queue.BookingEvent {
    return queue.BookingEvent{
        ID:         uuid.NewString(),
        Type:       typ,
        BookingID:  b.ID,
        CarID:      b.CarID,
        UserID:     b.UserID,
        OwnerID:    b.OwnerID,
        ActorID:    actorID,
        Status:     string(b.Status),
        Price:      b.Price,
        PickupDate: b.PickupDate.UTC().Format(dateLayout),
        ReturnDate: b.ReturnDate.UTC().Format(dateLayout),
        OccurredAt: at.UTC(),
    }
}
