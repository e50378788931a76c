package heartbeat

import (
	"context"
	"errors"
	"time"
)

// ConflictError is returned by a DIRClient call when the DIR detected that
// the version the caller supplied no longer matches its own (the semantic
// equivalent of the XtreemFS CONCURRENT_MODIFICATION error code). Callers
// distinguish it with errors.As, never by string comparison.
type ConflictError struct {
	UUID string
}

func (e *ConflictError) Error() string {
	return "concurrent modification: version conflict for uuid " + e.UUID
}

// IsConflict reports whether err is, or wraps, a *ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// Credentials carries the auth identity attached to every DIR RPC (§6.2).
// AuthType is fixed to "none" by this module; Username/Group are the
// fixed agent identity values.
type Credentials struct {
	AuthType string
	Username string
	Group    string
}

// DefaultCredentials returns the credentials every heartbeat agent call uses.
func DefaultCredentials() Credentials {
	return Credentials{AuthType: "none", Username: RPCUsername, Group: RPCGroup}
}

// UnboundedRetries signals "retry the RPC indefinitely at the transport
// level" to a DIRClient call; see §4.2 step 1.
const UnboundedRetries = -1

// DIRClient is the consumed interface described in §6.2. The agent never
// constructs one itself beyond the reference implementation in
// internal/dirrpc; production callers are expected to supply their own.
type DIRClient interface {
	ServiceGetByUuid(ctx context.Context, uuid string, numRetries int) (ServiceSet, error)
	ServiceRegister(ctx context.Context, svc ServiceRecord, numRetries int) error
	ServiceOffline(ctx context.Context, uuid string, grace time.Duration) error

	ConfigurationGet(ctx context.Context, uuid string, numRetries int) (Configuration, error)
	ConfigurationSet(ctx context.Context, cfg Configuration, numRetries int) error

	AddressMappingsGet(ctx context.Context, uuid string, numRetries int) (AddressMappingSet, error)
	AddressMappingsSet(ctx context.Context, set AddressMappingSet, numRetries int) error
}
