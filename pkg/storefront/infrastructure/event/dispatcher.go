package event

import (
	"github.com/sirupsen/logrus"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
)

type aggregateEvent interface {
	AggregateID() string
}

var _ service.EventDispatcher = &LogDispatcher{}

// LogDispatcher records every domain event as a structured log line.
type LogDispatcher struct {
	logger logrus.FieldLogger
}

func NewLogDispatcher(logger logrus.FieldLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(e service.Event) error {
	fields := logrus.Fields{"event": e.Type()}
	if a, ok := e.(aggregateEvent); ok {
		fields["aggregate_id"] = a.AggregateID()
	}
	d.logger.WithFields(fields).Info("domain event")
	return nil
}

var _ service.EventDispatcher = &MultiDispatcher{}

// MultiDispatcher fans an event out to every dispatcher. A failing target
// is logged and does not stop delivery to the rest; the first error is
// returned.
type MultiDispatcher struct {
	logger      logrus.FieldLogger
	dispatchers []service.EventDispatcher
}

func NewMultiDispatcher(logger logrus.FieldLogger, ds ...service.EventDispatcher) *MultiDispatcher {
	return &MultiDispatcher{logger: logger, dispatchers: ds}
}

func (m *MultiDispatcher) Dispatch(e service.Event) error {
	var first error
	for _, d := range m.dispatchers {
		err := d.Dispatch(e)
		if err == nil {
			continue
		}
		fields := logrus.Fields{"event": e.Type()}
		if a, ok := e.(aggregateEvent); ok {
			fields["aggregate_id"] = a.AggregateID()
		}
		m.logger.WithFields(fields).WithError(err).Warn("failed to dispatch event")
		if first == nil {
			first = err
		}
	}
	return first
}
