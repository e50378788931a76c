package heartbeat

// LifecycleEventKind is the closed set of events the lifecycle driver (A)
// publishes.
type LifecycleEventKind string

const (
	EventStarted LifecycleEventKind = "started"
	EventStopped LifecycleEventKind = "stopped"
	EventCrashed LifecycleEventKind = "crashed"
)

// LifecycleEvent is published best-effort to an EventBus; Err is populated
// only for EventCrashed.
type LifecycleEvent struct {
	Kind string
	UUID string
	Err  error
}

// EventBus is the optional sink lifecycle events are published to. A nil
// EventBus is a valid no-op bus: the agent has no required external
// messaging dependency (SPEC_FULL.md §11 "Lifecycle event bus").
type EventBus interface {
	Publish(event LifecycleEvent)
}

// EventBusFunc adapts a plain function to EventBus.
type EventBusFunc func(LifecycleEvent)

func (f EventBusFunc) Publish(event LifecycleEvent) { f(event) }

func publish(bus EventBus, kind LifecycleEventKind, uuid string, err error) {
	if bus == nil {
		return
	}
	bus.Publish(LifecycleEvent{Kind: string(kind), UUID: uuid, Err: err})
}

// MultiBus fans a lifecycle event out to every configured sink (e.g. both
// the AMQP and HTTP webhook sinks in internal/eventbus). A nil entry in the
// slice is skipped.
type MultiBus []EventBus

func (m MultiBus) Publish(event LifecycleEvent) {
	for _, bus := range m {
		if bus != nil {
			bus.Publish(event)
		}
	}
}
