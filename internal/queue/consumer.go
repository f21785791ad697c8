package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/rs/zerolog"
)

// StartBookingConsumer connects to the broker at url, declares the
// booking queue and appends every event to w as one line.  It reconnects
// with exponential backoff (capped at 30s) until ctx is cancelled, which
// is the only way it returns.
func StartBookingConsumer(ctx context.Context, url string, w io.Writer, log zerolog.Logger) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn().Err(err).Dur("retry_in", backoff).Msg("booking consumer: dial failed")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, w, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn().Err(err).Msg("booking consumer: consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, w io.Writer, log zerolog.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn().Err(err).Msg("booking consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(BookingQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(BookingQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleMessage(d.Body, w); err != nil {
                log.Error().Err(err).Msg("booking consumer: handle message failed")
                _ = d.Nack(false, false) // drop, requeueing a bad payload would loop
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleMessage decodes one event and writes its log line to w.
func HandleMessage(body []byte, w io.Writer) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.BookingID == 0 {
        return errors.New("event without type or booking id")
    }
    if _, err := io.WriteString(w, FormatEvent(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatEvent renders ev as a single newline terminated line.
func FormatEvent(ev BookingEvent) string {
    return fmt.Sprintf("[%s] %s | booking_id=%d | car_id=%d | user_id=%d | owner_id=%d | actor_id=%d | status=%s | price=%.2f | pickup=%s | return=%s\n",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, ev.CarID, ev.UserID, ev.OwnerID,
        ev.ActorID, ev.Status, ev.Price, ev.PickupDate, ev.ReturnDate)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
