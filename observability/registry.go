package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrUnknownObserver is returned when a configured name has no factory.
var ErrUnknownObserver = errors.New("unknown observer")

// Deps carries the shared sinks observer factories build on.
type Deps struct {
	Logger     *slog.Logger          // slog.Default() when nil
	Registerer prometheus.Registerer // prometheus.DefaultRegisterer when nil
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) registerer() prometheus.Registerer {
	if d.Registerer == nil {
		return prometheus.DefaultRegisterer
	}
	return d.Registerer
}

// Factory builds the observer for one configured name.
type Factory func(deps Deps) (Observer, error)

var (
	factories = map[string]Factory{
		"noop": func(Deps) (Observer, error) { return NoOpObserver{}, nil },
		"slog": func(d Deps) (Observer, error) { return NewSlogObserver(d.logger()), nil },
		"trace": func(Deps) (Observer, error) { return TraceObserver{}, nil },
		"prometheus": func(d Deps) (Observer, error) {
			obs, err := NewPrometheusObserver(d.registerer())
			if err != nil {
				return nil, err
			}
			return obs, nil
		},
	}
	mutex sync.RWMutex
)

// Register makes name resolvable, replacing any previous factory.
func Register(name string, factory Factory) {
	mutex.Lock()
	defer mutex.Unlock()

	factories[name] = factory
}

// RegisterObserver registers a fixed observer instance under name.
func RegisterObserver(name string, observer Observer) {
	Register(name, func(Deps) (Observer, error) { return observer, nil })
}

// Names lists the resolvable observer names in sorted order.
func Names() []string {
	mutex.RLock()
	defer mutex.RUnlock()

	return slices.Sorted(maps.Keys(factories))
}

// Check reports whether every name in spec is registered without building
// anything.
func Check(spec string) error {
	_, err := lookup(spec)
	return err
}

// Resolve builds the observer named by spec, a comma-separated list such as
// "slog,prometheus,trace". Repeated names are built once. A single name
// yields that observer, several yield a MultiObserver in listed order, and
// an empty spec yields NoOpObserver.
func Resolve(spec string, deps Deps) (Observer, error) {
	named, err := lookup(spec)
	if err != nil {
		return nil, err
	}

	built := make([]Observer, 0, len(named))
	for _, n := range named {
		obs, err := n.factory(deps)
		if err != nil {
			return nil, fmt.Errorf("observer %s: %w", n.name, err)
		}
		built = append(built, obs)
	}

	switch len(built) {
	case 0:
		return NoOpObserver{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiObserver(built...), nil
	}
}

type namedFactory struct {
	name    string
	factory Factory
}

func lookup(spec string) ([]namedFactory, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	var named []namedFactory
	seen := make(map[string]bool)
	for _, name := range strings.Split(spec, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		factory, exists := factories[name]
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownObserver, name)
		}
		named = append(named, namedFactory{name: name, factory: factory})
	}
	return named, nil
}
