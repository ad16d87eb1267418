package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver counts events by type and severity.
type PrometheusObserver struct {
	events *prometheus.CounterVec
}

// NewPrometheusObserver registers the bulldog_events_total counter on reg.
// When reg already holds that counter, for example because several models
// share one registry, the existing collector is reused.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulldog_events_total",
		Help: "Engine events by type and severity",
	}, []string{"type", "level"})

	if err := reg.Register(events); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("bulldog_events_total is registered as %T", are.ExistingCollector)
		}
		events = existing
	}
	return &PrometheusObserver{events: events}, nil
}

func (o *PrometheusObserver) OnEvent(_ context.Context, event Event) {
	o.events.WithLabelValues(string(event.Type), event.Level.String()).Inc()
}
