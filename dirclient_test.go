package heartbeat

import (
	"context"
	"sync"
	"time"
)

// fakeDIRClient is an in-memory DIRClient used across this package's tests.
// It mimics the DIR's optimistic-concurrency rule directly: ServiceRegister
// and ConfigurationSet reject with *ConflictError when the caller's version
// doesn't match the version currently on record. AddressMappingsSet accepts
// every write without a version check.
type fakeDIRClient struct {
	mu sync.Mutex

	services map[string]ServiceRecord
	configs  map[string]Configuration
	addrs    map[string]AddressMappingSet

	setCalls        int
	addrSetCalls    int
	forceGetErr     error
	forceSetErr     error
	forceConflictOn int // ServiceRegister calls <= this count return ConflictError
}

func newFakeDIRClient() *fakeDIRClient {
	return &fakeDIRClient{
		services: make(map[string]ServiceRecord),
		configs:  make(map[string]Configuration),
		addrs:    make(map[string]AddressMappingSet),
	}
}

func (f *fakeDIRClient) ServiceGetByUuid(ctx context.Context, uuid string, numRetries int) (ServiceSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceGetErr != nil {
		return ServiceSet{}, f.forceGetErr
	}
	rec, ok := f.services[uuid]
	if !ok {
		return ServiceSet{}, nil
	}
	return ServiceSet{Services: []ServiceRecord{rec}}, nil
}

func (f *fakeDIRClient) ServiceRegister(ctx context.Context, svc ServiceRecord, numRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.forceSetErr != nil {
		return f.forceSetErr
	}
	if f.setCalls <= f.forceConflictOn {
		return &ConflictError{UUID: svc.UUID}
	}

	prior, exists := f.services[svc.UUID]
	if exists && prior.Version != svc.Version {
		return &ConflictError{UUID: svc.UUID}
	}
	svc.Version = svc.Version + 1
	f.services[svc.UUID] = svc
	return nil
}

func (f *fakeDIRClient) ServiceOffline(ctx context.Context, uuid string, grace time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.services, uuid)
	return nil
}

func (f *fakeDIRClient) ConfigurationGet(ctx context.Context, uuid string, numRetries int) (Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[uuid], nil
}

func (f *fakeDIRClient) ConfigurationSet(ctx context.Context, cfg Configuration, numRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prior := f.configs[cfg.UUID]
	if prior.Version != cfg.Version {
		return &ConflictError{UUID: cfg.UUID}
	}
	cfg.Version++
	f.configs[cfg.UUID] = cfg
	return nil
}

func (f *fakeDIRClient) AddressMappingsGet(ctx context.Context, uuid string, numRetries int) (AddressMappingSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addrs[uuid], nil
}

func (f *fakeDIRClient) AddressMappingsSet(ctx context.Context, set AddressMappingSet, numRetries int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrSetCalls++
	f.addrs[set.UUID] = set
	return nil
}
