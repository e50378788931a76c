// Package dirrpc is the reference DIR RPC client: a DIRClient implementation
// (see the root heartbeat package's DIRClient interface) built on
// google.golang.org/grpc with a JSON application codec (see jsoncodec) in
// place of protobuf code generation, since the wire protocol itself is out
// of scope for this module.
package dirrpc

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	heartbeat "github.com/xtreemfs/heartbeat-agent"
	"github.com/xtreemfs/heartbeat-agent/internal/dirrpc/jsoncodec"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceFQN = "xtreemfs.dir.DirectoryService"

// invokeRetryDelay paces the unbounded retry path's polling of a
// transiently-unreachable DIR; the bounded path instead uses retry-go's own
// backoff, matching withBoundedRetry in the root package.
const invokeRetryDelay = 200 * time.Millisecond

// Client implements heartbeat.DIRClient over a single *grpc.ClientConn.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed connection. Dial it with
// grpc.WithChainUnaryInterceptor(CredentialsInterceptor(...)) and the
// credentials built by heartbeat.BuildClientCredentials (or
// insecure.NewCredentials() for ProtocolPlain).
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func method(name string) string {
	return "/" + serviceFQN + "/" + name
}

// invoke issues one RPC, retrying transient (non-conflict) failures per
// numRetries: heartbeat.UnboundedRetries polls indefinitely until success,
// conflict, or context cancellation; numRetries <= 0 is a single attempt;
// otherwise it retries up to numRetries additional times via retry-go,
// matching the root package's withBoundedRetry. A *heartbeat.ConflictError
// is never retried here — it is a business disagreement for the caller to
// resolve (re-fetch and reapply), not a transport failure.
func (c *Client) invoke(ctx context.Context, rpc string, req, reply interface{}, numRetries int) error {
	opts := []grpc.CallOption{grpc.CallContentSubtype(jsoncodec.Name)}
	call := func() error {
		return translateError(c.conn.Invoke(ctx, method(rpc), req, reply, opts...))
	}

	switch {
	case numRetries == heartbeat.UnboundedRetries:
		for {
			err := call()
			if err == nil || heartbeat.IsConflict(err) {
				return err
			}
			select {
			case <-time.After(invokeRetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	case numRetries <= 0:
		return call()
	default:
		return retry.Do(
			call,
			retry.Context(ctx),
			retry.Attempts(uint(numRetries)+1),
			retry.LastErrorOnly(true),
			retry.DelayType(retry.BackOffDelay),
			retry.RetryIf(func(err error) bool { return !heartbeat.IsConflict(err) }),
		)
	}
}

// translateError maps the gRPC status code DIR uses for a version conflict
// (codes.Aborted, the conventional "optimistic concurrency lost" code) to
// *heartbeat.ConflictError so callers can use heartbeat.IsConflict.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if ok && st.Code() == codes.Aborted {
		return &heartbeat.ConflictError{}
	}
	return err
}

type serviceGetByUuidRequest struct {
	UUID string `json:"uuid"`
}

type serviceSetWire struct {
	Services []serviceRecordWire `json:"services"`
}

type serviceRecordWire struct {
	UUID    string            `json:"uuid"`
	Type    string            `json:"type"`
	Name    string            `json:"name"`
	Version uint64            `json:"version"`
	Data    map[string]string `json:"data"`
}

func toWire(r heartbeat.ServiceRecord) serviceRecordWire {
	return serviceRecordWire{UUID: r.UUID, Type: string(r.Type), Name: r.Name, Version: r.Version, Data: r.Data}
}

func fromWire(r serviceRecordWire) heartbeat.ServiceRecord {
	return heartbeat.ServiceRecord{UUID: r.UUID, Type: heartbeat.ServiceType(r.Type), Name: r.Name, Version: r.Version, Data: r.Data}
}

func (c *Client) ServiceGetByUuid(ctx context.Context, uuid string, numRetries int) (heartbeat.ServiceSet, error) {
	var resp serviceSetWire
	err := c.invoke(ctx, "ServiceGetByUuid", &serviceGetByUuidRequest{UUID: uuid}, &resp, numRetries)
	if err != nil {
		return heartbeat.ServiceSet{}, err
	}
	out := heartbeat.ServiceSet{Services: make([]heartbeat.ServiceRecord, len(resp.Services))}
	for i, s := range resp.Services {
		out.Services[i] = fromWire(s)
	}
	return out, nil
}

func (c *Client) ServiceRegister(ctx context.Context, svc heartbeat.ServiceRecord, numRetries int) error {
	var resp struct{}
	return c.invoke(ctx, "ServiceRegister", toWire(svc), &resp, numRetries)
}

type serviceOfflineRequest struct {
	UUID    string `json:"uuid"`
	GraceMs int64  `json:"grace_ms"`
}

func (c *Client) ServiceOffline(ctx context.Context, uuid string, grace time.Duration) error {
	var resp struct{}
	return c.invoke(ctx, "ServiceOffline", &serviceOfflineRequest{UUID: uuid, GraceMs: grace.Milliseconds()}, &resp, 0)
}

type configurationWire struct {
	UUID    string            `json:"uuid"`
	Version uint64            `json:"version"`
	Data    map[string]string `json:"data"`
}

func (c *Client) ConfigurationGet(ctx context.Context, uuid string, numRetries int) (heartbeat.Configuration, error) {
	var resp configurationWire
	err := c.invoke(ctx, "ConfigurationGet", &serviceGetByUuidRequest{UUID: uuid}, &resp, numRetries)
	if err != nil {
		return heartbeat.Configuration{}, err
	}
	return heartbeat.Configuration{UUID: resp.UUID, Version: resp.Version, Data: resp.Data}, nil
}

func (c *Client) ConfigurationSet(ctx context.Context, cfg heartbeat.Configuration, numRetries int) error {
	var resp struct{}
	req := configurationWire{UUID: cfg.UUID, Version: cfg.Version, Data: cfg.Data}
	return c.invoke(ctx, "ConfigurationSet", &req, &resp, numRetries)
}

type addressMappingWire struct {
	UUID         string `json:"uuid"`
	Version      uint64 `json:"version"`
	Protocol     string `json:"protocol"`
	Address      string `json:"address"`
	Port         uint16 `json:"port"`
	MatchNetwork string `json:"match_network"`
	TTLSeconds   uint32 `json:"ttl_s"`
	URI          string `json:"uri"`
}

type addressMappingSetWire struct {
	UUID     string               `json:"uuid"`
	Mappings []addressMappingWire `json:"mappings"`
}

func mappingToWire(m heartbeat.AddressMapping) addressMappingWire {
	return addressMappingWire{
		UUID: m.UUID, Version: m.Version, Protocol: string(m.Protocol), Address: m.Address,
		Port: m.Port, MatchNetwork: m.MatchNetwork, TTLSeconds: m.TTLSeconds, URI: m.URI,
	}
}

func mappingFromWire(m addressMappingWire) heartbeat.AddressMapping {
	return heartbeat.AddressMapping{
		UUID: m.UUID, Version: m.Version, Protocol: heartbeat.Protocol(m.Protocol), Address: m.Address,
		Port: m.Port, MatchNetwork: m.MatchNetwork, TTLSeconds: m.TTLSeconds, URI: m.URI,
	}
}

func (c *Client) AddressMappingsGet(ctx context.Context, uuid string, numRetries int) (heartbeat.AddressMappingSet, error) {
	var resp addressMappingSetWire
	err := c.invoke(ctx, "AddressMappingsGet", &serviceGetByUuidRequest{UUID: uuid}, &resp, numRetries)
	if err != nil {
		return heartbeat.AddressMappingSet{}, err
	}
	out := heartbeat.AddressMappingSet{UUID: resp.UUID, Mappings: make([]heartbeat.AddressMapping, len(resp.Mappings))}
	for i, m := range resp.Mappings {
		out.Mappings[i] = mappingFromWire(m)
	}
	return out, nil
}

func (c *Client) AddressMappingsSet(ctx context.Context, set heartbeat.AddressMappingSet, numRetries int) error {
	var resp struct{}
	req := addressMappingSetWire{UUID: set.UUID, Mappings: make([]addressMappingWire, len(set.Mappings))}
	for i, m := range set.Mappings {
		req.Mappings[i] = mappingToWire(m)
	}
	return c.invoke(ctx, "AddressMappingsSet", &req, &resp, numRetries)
}
