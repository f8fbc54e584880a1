package audit

import "context"

// Sink is a write-only event destination (e.g. a Kafka topic).
type Sink interface {
	Append(ctx context.Context, event Event) error
}

type fanout struct {
	primary Store
	sinks   []Sink
}

// Fanout appends every event to the primary store and each sink; reads come
// from the primary. Sink failures surface so the publisher can log them.
func Fanout(primary Store, sinks ...Sink) Store {
	return &fanout{primary: primary, sinks: sinks}
}

func (f *fanout) Append(ctx context.Context, event Event) error {
	if err := f.primary.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range f.sinks {
		if err := sink.Append(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanout) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	return f.primary.ListBySubject(ctx, subject)
}
