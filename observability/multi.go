package observability

import "context"

// MultiObserver forwards each event to every wrapped observer in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver drops nil and NoOpObserver entries and splices in the
// members of nested MultiObservers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	flat := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver:
		case *MultiObserver:
			if o != nil {
				flat = append(flat, o.observers...)
			}
		default:
			flat = append(flat, obs)
		}
	}
	return &MultiObserver{observers: flat}
}

// Len reports how many observers receive each event.
func (m *MultiObserver) Len() int {
	return len(m.observers)
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}
