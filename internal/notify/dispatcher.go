package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"campuslibrary/internal/ledger"
	"campuslibrary/internal/metrics"
	"campuslibrary/internal/queue"
)

// MessageType tags notification entries on the queue.
const MessageType = "notify"

// QueueNotifier hands borrow confirmations to the queue so the request path never waits on SMTP.
type QueueNotifier struct {
	q queue.Queue
}

// NewQueueNotifier creates a notifier publishing to q.
func NewQueueNotifier(q queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

// BorrowConfirmed enqueues the confirmation mail.
func (n *QueueNotifier) BorrowConfirmed(ctx context.Context, s ledger.Student, rec ledger.BorrowRecord) error {
	return Enqueue(ctx, n.q, BorrowConfirmation(s, rec))
}

// Enqueue publishes msg for the dispatcher.
func Enqueue(ctx context.Context, q queue.Queue, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}

// Dispatcher drains queued notifications into a gateway.
type Dispatcher struct {
	q           queue.Queue
	gw          Gateway
	sendTimeout time.Duration
}

// NewDispatcher creates a dispatcher; each send gets its own timeout.
func NewDispatcher(q queue.Queue, gw Gateway, sendTimeout time.Duration) *Dispatcher {
	if sendTimeout <= 0 {
		sendTimeout = 20 * time.Second
	}
	return &Dispatcher{q: q, gw: gw, sendTimeout: sendTimeout}
}

// Run consumes until ctx is cancelled. Send failures are logged and dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	messages, err := d.q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != MessageType {
			continue
		}
		var m Message
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			log.Printf("dropping malformed notification: %v", err)
			continue
		}
		d.deliver(ctx, m)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, m Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	err := d.gw.Send(sendCtx, m)
	metrics.Notification(m.Kind, err)
	if err != nil {
		log.Printf("%s notification to %s failed: %v", m.Kind, m.To, err)
		return
	}
	log.Printf("%s notification sent to %s", m.Kind, m.To)
}
