package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

// ErrNoChannel means the user has no usable notification channel.
var ErrNoChannel = errors.New("no notification channel configured")

// Dispatcher delivers notifications in the background, trying channels in
// priority order until one succeeds.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	sem      chan struct{}
	wg       sync.WaitGroup
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher bounds concurrent deliveries to maxInFlight. Each delivery
// gets timeout across all channels.
func NewDispatcher(channels []Channel, maxInFlight int, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Dispatcher{
		channels: channels,
		timeout:  timeout,
		sem:      make(chan struct{}, maxInFlight),
		log:      log.WithComponent("notify"),
		metrics:  m,
	}
}

var _ ports.Notifier = (*Dispatcher)(nil)

// NotifyMention queues a mention notification. It blocks only while
// maxInFlight deliveries are already running.
func (d *Dispatcher) NotifyMention(n ports.MentionNotification) {
	if n.Recipient == nil {
		return
	}
	msg := MentionMessage(n)

	d.sem <- struct{}{}
	d.wg.Add(1)
	go func() {
		defer func() {
			<-d.sem
			d.wg.Done()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		_, _ = d.Deliver(ctx, n.Recipient, msg)
	}()
}

// Deliver sends msg synchronously. A failing channel falls through to the
// next applicable one. It returns the channel that delivered the message.
func (d *Dispatcher) Deliver(ctx context.Context, u *entities.User, msg Message) (string, error) {
	var lastErr error = ErrNoChannel
	for _, ch := range d.channels {
		if !ch.Applicable(u) {
			continue
		}
		err := ch.Send(ctx, u, msg)
		d.metrics.NotificationSent(ch.Name(), err)
		d.log.LogNotification(u.ID.String(), ch.Name(), err)
		if err == nil {
			return ch.Name(), nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, ErrNoChannel) {
		d.log.Debugw("User has no notification channel", "user_id", u.ID)
	}
	return "", lastErr
}

// Wait blocks until queued deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
