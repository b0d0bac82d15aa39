package audit

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "larder_audit_events_dropped_total",
	Help: "Audit events dropped because the inbox was full.",
})

// Worker consumes events from a bounded inbox and persists them, keeping
// audit writes off the request path.
type Worker struct {
	store  Store
	inbox  chan Event
	logger *slog.Logger
}

func NewWorker(store Store, logger *slog.Logger) *Worker {
	return &Worker{
		store:  store,
		inbox:  make(chan Event, 256),
		logger: logger,
	}
}

// Publish enqueues an event, dropping it when the inbox is full.
func (w *Worker) Publish(_ context.Context, event Event) {
	select {
	case w.inbox <- event:
	default:
		droppedTotal.Inc()
	}
}

// Run drains the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("failed to persist audit event", "kind", event.Kind, "error", err)
			}
		}
	}
}
