// Package etcdstore is a development/test-only DIRClient backed by etcd,
// using Txn/Compare for the same optimistic-concurrency semantics the real
// DIR enforces (SPEC_FULL.md §11). It is not a model of the real DIR wire
// protocol or storage engine; it exists so the agent can be exercised
// end-to-end against a real compare-and-swap store without a live XtreemFS
// DIR cluster, adapted from the teacher's etcd.go EtcdHandle.
package etcdstore

import (
	"context"
	"encoding/json"
	"time"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const (
	serviceKeyPrefix = "/heartbeat/service/"
	configKeyPrefix  = "/heartbeat/config/"
	addrKeyPrefix    = "/heartbeat/addrmap/"
)

// Store implements heartbeat.DIRClient against an etcd cluster. Each DIR
// record's version is the etcd ModRevision of its key: a Put is only
// accepted when the caller's version matches the current ModRevision,
// mirroring the DIR's own version-conflict rejection.
type Store struct {
	client *clientv3.Client
}

func New(client *clientv3.Client) *Store {
	return &Store{client: client}
}

func get(ctx context.Context, c *clientv3.Client, key string) (value []byte, version uint64, found bool, err error) {
	resp, err := c.Get(ctx, key)
	if err != nil {
		return nil, 0, false, err
	}
	if len(resp.Kvs) == 0 {
		return nil, 0, false, nil
	}
	kv := resp.Kvs[0]
	return kv.Value, uint64(kv.ModRevision), true, nil
}

// casPut writes value to key only if the key's current ModRevision equals
// expectedVersion (0 meaning "the key must not exist yet"), returning
// *heartbeat.ConflictError otherwise.
func casPut(ctx context.Context, c *clientv3.Client, key string, expectedVersion uint64, value []byte) error {
	var cmp clientv3.Cmp
	if expectedVersion == 0 {
		cmp = clientv3.Compare(clientv3.CreateRevision(key), "=", 0)
	} else {
		cmp = clientv3.Compare(clientv3.ModRevision(key), "=", int64(expectedVersion))
	}

	resp, err := c.Txn(ctx).
		If(cmp).
		Then(clientv3.OpPut(key, string(value))).
		Commit()
	if err != nil {
		return err
	}
	if !resp.Succeeded {
		return &heartbeat.ConflictError{}
	}
	return nil
}

func (s *Store) ServiceGetByUuid(ctx context.Context, uuid string, numRetries int) (heartbeat.ServiceSet, error) {
	value, version, found, err := get(ctx, s.client, serviceKeyPrefix+uuid)
	if err != nil {
		return heartbeat.ServiceSet{}, err
	}
	if !found {
		return heartbeat.ServiceSet{}, nil
	}

	var rec heartbeat.ServiceRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return heartbeat.ServiceSet{}, err
	}
	rec.Version = version
	return heartbeat.ServiceSet{Services: []heartbeat.ServiceRecord{rec}}, nil
}

func (s *Store) ServiceRegister(ctx context.Context, svc heartbeat.ServiceRecord, numRetries int) error {
	value, err := json.Marshal(svc)
	if err != nil {
		return err
	}
	return casPut(ctx, s.client, serviceKeyPrefix+svc.UUID, svc.Version, value)
}

func (s *Store) ServiceOffline(ctx context.Context, uuid string, grace time.Duration) error {
	_, err := s.client.Delete(ctx, serviceKeyPrefix+uuid)
	return err
}

func (s *Store) ConfigurationGet(ctx context.Context, uuid string, numRetries int) (heartbeat.Configuration, error) {
	value, version, found, err := get(ctx, s.client, configKeyPrefix+uuid)
	if err != nil {
		return heartbeat.Configuration{}, err
	}
	if !found {
		return heartbeat.Configuration{UUID: uuid}, nil
	}
	var cfg heartbeat.Configuration
	if err := json.Unmarshal(value, &cfg); err != nil {
		return heartbeat.Configuration{}, err
	}
	cfg.Version = version
	return cfg, nil
}

func (s *Store) ConfigurationSet(ctx context.Context, cfg heartbeat.Configuration, numRetries int) error {
	value, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return casPut(ctx, s.client, configKeyPrefix+cfg.UUID, cfg.Version, value)
}

func (s *Store) AddressMappingsGet(ctx context.Context, uuid string, numRetries int) (heartbeat.AddressMappingSet, error) {
	value, version, found, err := get(ctx, s.client, addrKeyPrefix+uuid)
	if err != nil {
		return heartbeat.AddressMappingSet{}, err
	}
	if !found {
		return heartbeat.AddressMappingSet{UUID: uuid}, nil
	}
	var set heartbeat.AddressMappingSet
	if err := json.Unmarshal(value, &set); err != nil {
		return heartbeat.AddressMappingSet{}, err
	}
	if len(set.Mappings) > 0 {
		set.Mappings[0].Version = version
	}
	return set, nil
}

func (s *Store) AddressMappingsSet(ctx context.Context, set heartbeat.AddressMappingSet, numRetries int) error {
	version := uint64(0)
	if len(set.Mappings) > 0 {
		version = set.Mappings[0].Version
	}
	value, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return casPut(ctx, s.client, addrKeyPrefix+set.UUID, version, value)
}
