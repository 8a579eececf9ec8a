package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// ErrPublisherBusy is returned when the outgoing buffer is full.
var ErrPublisherBusy = errors.New("movie event buffer is full")

// Publisher delivers movie events.  Implementations must not block the
// request that triggered the event.
type Publisher interface {
	Publish(ctx context.Context, ev MovieEvent) error
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, MovieEvent) error { return nil }

// AMQPPublisher buffers events and sends them to MovieEventsQueue from a
// single background goroutine that keeps one broker connection open and
// reconnects with backoff.
type AMQPPublisher struct {
	url    string
	events chan MovieEvent
	done   chan struct{}
	once   sync.Once
}

// NewAMQPPublisher starts the background sender.  buffer bounds the number
// of events waiting for the broker.
func NewAMQPPublisher(url string, buffer int) *AMQPPublisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &AMQPPublisher{
		url:    url,
		events: make(chan MovieEvent, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues ev without waiting for the broker.
func (p *AMQPPublisher) Publish(_ context.Context, ev MovieEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		log.WithField("type", ev.Type).WithField("movie_id", ev.MovieID).Warn("dropping movie event, buffer full")
		return ErrPublisherBusy
	}
}

// Close stops the background sender.  Buffered events that were not sent
// yet are dropped.
func (p *AMQPPublisher) Close() {
	p.once.Do(func() { close(p.done) })
}

func (p *AMQPPublisher) run() {
	backoff := time.Second
	for {
		select {
		case <-p.done:
			return
		default:
		}
		conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(2 * time.Second)})
		if err != nil {
			log.WithError(err).Warnf("rabbitmq: dial failed, retrying in %s", backoff)
			if !p.sleep(backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second
		err = p.sendLoop(conn)
		_ = conn.Close()
		if err == nil {
			return
		}
		log.WithError(err).Warn("rabbitmq: publisher loop ended, reconnecting")
		if !p.sleep(2 * time.Second) {
			return
		}
	}
}

// sendLoop returns nil when the publisher was closed and an error when the
// connection has to be re-established.
func (p *AMQPPublisher) sendLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(MovieEventsQueue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-p.done:
			return nil
		case aerr := <-closed:
			if aerr == nil {
				return errors.New("connection closed")
			}
			return errors.Wrap(aerr, "connection closed")
		case ev := <-p.events:
			if err := publish(ch, ev); err != nil {
				log.WithError(err).WithField("type", ev.Type).WithField("movie_id", ev.MovieID).Error("rabbitmq: publish failed")
				return err
			}
		}
	}
}

func publish(ch *amqp.Channel, ev MovieEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx,
		"",               // default exchange
		MovieEventsQueue, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.done:
		return false
	case <-t.C:
		return true
	}
}
