package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Source yields the events due right now and records day-before sends.
type Source interface {
	UpcomingNotifications(ctx context.Context, now time.Time) ([]Event, error)
	MarkNotificationSent(ctx context.Context, sessionID string, at time.Time) (bool, error)
}

// Dispatcher hands qualifying events to the presentation layer.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []Event)
}

// Driver polls the Source on a fixed interval and forwards reminders to the
// Dispatcher. A failing poll is an empty tick, never a crash.
type Driver struct {
	source     Source
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
	log        *slog.Logger
	fired      *firedCache

	mu   sync.Mutex
	cron *cron.Cron
}

// NewDriver wires a driver. interval defaults to one minute when not
// positive; now defaults to time.Now.
func NewDriver(source Source, dispatcher Dispatcher, interval time.Duration, now func() time.Time, logger *slog.Logger) *Driver {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		source:     source,
		dispatcher: dispatcher,
		interval:   interval,
		now:        now,
		log:        logger.With("service", "notify.driver"),
		fired:      newFiredCache(0, now),
	}
}

// Start begins periodic evaluation. Calling Start on a running driver is a
// no-op.
func (d *Driver) Start(ctx context.Context) error {
	if d == nil || d.source == nil {
		return fmt.Errorf("notify: driver is not configured")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(time.Local))
	spec := fmt.Sprintf("@every %s", d.interval)
	if _, err := runner.AddFunc(spec, func() { d.tick(ctx) }); err != nil {
		return fmt.Errorf("notify: register poll entry: %w", err)
	}

	runner.Start()
	d.cron = runner
	d.log.InfoContext(ctx, "driver started", "interval", d.interval)
	return nil
}

// Stop halts polling at the next tick boundary and waits for an in-flight
// tick to finish, or for ctx to expire.
func (d *Driver) Stop(ctx context.Context) {
	if d == nil {
		return
	}

	d.mu.Lock()
	runner := d.cron
	d.cron = nil
	d.mu.Unlock()

	if runner == nil {
		return
	}

	select {
	case <-runner.Stop().Done():
		d.log.InfoContext(ctx, "driver stopped")
	case <-ctx.Done():
		d.log.WarnContext(ctx, "driver stop timed out with a tick in flight")
	}
}

func (d *Driver) tick(ctx context.Context) {
	now := d.now()

	events, err := d.source.UpcomingNotifications(ctx, now)
	if err != nil {
		// The next tick is the retry mechanism.
		d.log.WarnContext(ctx, "evaluation failed, skipping tick", "error", err)
		return
	}

	due := make([]Event, 0, len(events))
	for _, event := range events {
		switch event.Kind {
		case KindDayBefore:
			due = append(due, event)
			if _, err := d.source.MarkNotificationSent(ctx, event.SessionID, now); err != nil {
				d.log.WarnContext(ctx, "failed to record day-before send", "session_id", event.SessionID, "error", err)
			}
		default:
			if d.fired.Fired(event.SessionID, event.Kind) {
				continue
			}
			d.fired.Mark(event.SessionID, event.Kind)
			due = append(due, event)
		}
	}

	if len(due) == 0 || d.dispatcher == nil {
		return
	}

	d.log.DebugContext(ctx, "dispatching reminders", "count", len(due))
	d.dispatcher.Dispatch(ctx, due)
}
