package etcdstore

import (
	"context"
	"os"
	"testing"
	"time"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// newTestClient dials a real etcd cluster named by ETCD_TEST_ENDPOINTS
// (comma-separated). These tests exercise casPut's compare-and-swap
// semantics against the real thing rather than a mock, so they are skipped
// unless a cluster is actually available to the test environment.
func newTestClient(t *testing.T) *clientv3.Client {
	t.Helper()
	endpoint := os.Getenv("ETCD_TEST_ENDPOINTS")
	if endpoint == "" {
		t.Skip("ETCD_TEST_ENDPOINTS not set, skipping etcdstore integration test")
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   []string{endpoint},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("dial etcd: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestServiceRegister_FirstWriteRequiresVersionZero(t *testing.T) {
	c := newTestClient(t)
	s := New(c)
	ctx := context.Background()

	uuid := "etcdstore-test-" + t.Name()
	defer c.Delete(ctx, serviceKeyPrefix+uuid)

	err := s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: 0, Name: "osd-1"}, 0)
	if err != nil {
		t.Fatalf("first register with version 0 should succeed: %v", err)
	}

	err = s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: 0, Name: "osd-1-again"}, 0)
	if !heartbeat.IsConflict(err) {
		t.Fatalf("expected a conflict when reusing version 0 against an existing key, got %v", err)
	}
}

func TestServiceRegister_CorrectVersionSucceedsAndAdvances(t *testing.T) {
	c := newTestClient(t)
	s := New(c)
	ctx := context.Background()

	uuid := "etcdstore-test-" + t.Name()
	defer c.Delete(ctx, serviceKeyPrefix+uuid)

	if err := s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: 0, Name: "osd-1"}, 0); err != nil {
		t.Fatalf("initial register: %v", err)
	}

	set, err := s.ServiceGetByUuid(ctx, uuid, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set.Services) != 1 {
		t.Fatalf("expected exactly one service, got %d", len(set.Services))
	}
	version := set.Services[0].Version

	if err := s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: version, Name: "osd-1-updated"}, 0); err != nil {
		t.Fatalf("expected the correctly-versioned write to succeed: %v", err)
	}

	updated, err := s.ServiceGetByUuid(ctx, uuid, 0)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if updated.Services[0].Name != "osd-1-updated" {
		t.Fatalf("expected the updated name to persist, got %+v", updated.Services[0])
	}
	if updated.Services[0].Version == version {
		t.Fatal("expected the version (etcd ModRevision) to have advanced")
	}
}

func TestServiceRegister_StaleVersionConflicts(t *testing.T) {
	c := newTestClient(t)
	s := New(c)
	ctx := context.Background()

	uuid := "etcdstore-test-" + t.Name()
	defer c.Delete(ctx, serviceKeyPrefix+uuid)

	if err := s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: 0, Name: "osd-1"}, 0); err != nil {
		t.Fatalf("initial register: %v", err)
	}
	set, err := s.ServiceGetByUuid(ctx, uuid, 0)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	staleVersion := set.Services[0].Version

	if err := s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: staleVersion, Name: "osd-1-v2"}, 0); err != nil {
		t.Fatalf("second register: %v", err)
	}

	err = s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: staleVersion, Name: "osd-1-v3-stale"}, 0)
	if !heartbeat.IsConflict(err) {
		t.Fatalf("expected a conflict reusing a stale version, got %v", err)
	}
}

func TestServiceOffline_DeletesKey(t *testing.T) {
	c := newTestClient(t)
	s := New(c)
	ctx := context.Background()

	uuid := "etcdstore-test-" + t.Name()
	if err := s.ServiceRegister(ctx, heartbeat.ServiceRecord{UUID: uuid, Version: 0, Name: "osd-1"}, 0); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.ServiceOffline(ctx, uuid, 0); err != nil {
		t.Fatalf("offline: %v", err)
	}

	set, err := s.ServiceGetByUuid(ctx, uuid, 0)
	if err != nil {
		t.Fatalf("get after offline: %v", err)
	}
	if len(set.Services) != 0 {
		t.Fatalf("expected no services after offline, got %+v", set.Services)
	}
}
