package heartbeat

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// HostIdentity is a stable identifier for the machine the agent runs on,
// derived the way the teacher's monitor.go GetMachineCode does: a
// protected, per-application machine ID when an application tag is given,
// falling back to the raw machine ID otherwise. It has nothing to do with
// a service's own UUID (that one is assigned by the operator or DIR); it
// exists only to let an operator correlate heartbeats back to a host.
func HostIdentity(appTag string) (string, error) {
	var (
		id  string
		err error
	)
	if appTag != "" {
		id, err = machineid.ProtectedID(appTag)
	} else {
		id, err = machineid.ID()
	}
	if err != nil {
		return fallbackHostID(), nil
	}
	return id, nil
}

// NewServiceUUID mints a fresh service UUID for first-time registration.
// Once assigned, a service's UUID is a durable identity and must be
// persisted by the caller across restarts; this helper only covers the
// one-time "this service has never been registered before" case.
func NewServiceUUID() string {
	return uuid.NewString()
}
