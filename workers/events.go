package workers

import "github.com/tailored-agentic-units/bulldog/observability"

const (
	EventPoolStart      observability.EventType = "workers.start"
	EventPoolComplete   observability.EventType = "workers.complete"
	EventWorkerStart    observability.EventType = "workers.item.start"
	EventWorkerComplete observability.EventType = "workers.item.complete"
)
