package heartbeat

import (
	"context"
	"errors"
	"time"

	sentinel "github.com/alibaba/sentinel-golang/api"
)

// ErrCircuitOpen is returned in place of the underlying DIR call when the
// named sentinel rule has tripped.
var ErrCircuitOpen = errors.New("heartbeat: dir rpc circuit breaker open")

// breakerClient wraps a DIRClient so every call passes through a named
// sentinel-golang resource, adapted from the teacher's sentinel.go Entry and
// grpc.go's per-call sentinel.Entry/TraceError/Exit pattern. A conflict
// response is a successful round trip carrying a business disagreement, not
// a transport failure, so it is never traced to sentinel as an error — only
// genuine RPC/IO failures count against the breaker.
type breakerClient struct {
	DIRClient
	resourcePrefix string
}

// WithCircuitBreaker returns a DIRClient that trips a circuit breaker rule
// per RPC kind (named "<resourcePrefix>.<rpc>") on a sustained failure
// ratio. Install the corresponding rules with sentinel's
// circuitbreaker.LoadRules before using the returned client.
func WithCircuitBreaker(client DIRClient, resourcePrefix string) DIRClient {
	return &breakerClient{DIRClient: client, resourcePrefix: resourcePrefix}
}

func (b *breakerClient) resource(name string) string {
	return b.resourcePrefix + "." + name
}

func guard(resource string, fn func() error) error {
	e, blockErr := sentinel.Entry(resource)
	if blockErr != nil {
		return ErrCircuitOpen
	}
	defer e.Exit()

	err := fn()
	if err != nil && !IsConflict(err) {
		sentinel.TraceError(e, err)
	}
	return err
}

func (b *breakerClient) ServiceGetByUuid(ctx context.Context, uuid string, numRetries int) (ServiceSet, error) {
	var out ServiceSet
	err := guard(b.resource("service_get_by_uuid"), func() error {
		var e error
		out, e = b.DIRClient.ServiceGetByUuid(ctx, uuid, numRetries)
		return e
	})
	return out, err
}

func (b *breakerClient) ServiceRegister(ctx context.Context, svc ServiceRecord, numRetries int) error {
	return guard(b.resource("service_register"), func() error {
		return b.DIRClient.ServiceRegister(ctx, svc, numRetries)
	})
}

func (b *breakerClient) ServiceOffline(ctx context.Context, uuid string, grace time.Duration) error {
	return guard(b.resource("service_offline"), func() error {
		return b.DIRClient.ServiceOffline(ctx, uuid, grace)
	})
}

func (b *breakerClient) ConfigurationGet(ctx context.Context, uuid string, numRetries int) (Configuration, error) {
	var out Configuration
	err := guard(b.resource("configuration_get"), func() error {
		var e error
		out, e = b.DIRClient.ConfigurationGet(ctx, uuid, numRetries)
		return e
	})
	return out, err
}

func (b *breakerClient) ConfigurationSet(ctx context.Context, cfg Configuration, numRetries int) error {
	return guard(b.resource("configuration_set"), func() error {
		return b.DIRClient.ConfigurationSet(ctx, cfg, numRetries)
	})
}

func (b *breakerClient) AddressMappingsGet(ctx context.Context, uuid string, numRetries int) (AddressMappingSet, error) {
	var out AddressMappingSet
	err := guard(b.resource("address_mappings_get"), func() error {
		var e error
		out, e = b.DIRClient.AddressMappingsGet(ctx, uuid, numRetries)
		return e
	})
	return out, err
}

func (b *breakerClient) AddressMappingsSet(ctx context.Context, set AddressMappingSet, numRetries int) error {
	return guard(b.resource("address_mappings_set"), func() error {
		return b.DIRClient.AddressMappingsSet(ctx, set, numRetries)
	})
}
