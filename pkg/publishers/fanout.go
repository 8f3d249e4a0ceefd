package publishers

import (
	"context"
	"errors"
	"fmt"
)

// Fanout delivers each discovery event to every configured downstream sink.
// One failing sink never stops the others from seeing a newly discovered
// scholarship.
type Fanout struct {
	publishers []Publisher
}

// NewFanout builds a dispatcher over the given sinks, dropping nil entries.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp}
}

// Publish hands the scholarship event to every sink in turn and returns how
// many delivered it, with per-sink failures joined into one error.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	delivered := 0
	for _, p := range f.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of active sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}
