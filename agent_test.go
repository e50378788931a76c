package heartbeat

import (
	"context"
	"testing"
	"time"
)

func testGenerator(uuid string) ServiceGenerator {
	return ServiceGeneratorFunc(func() ([]ServiceRecord, error) {
		return []ServiceRecord{{UUID: uuid, Type: ServiceTypeOSD, Name: "test-osd"}}, nil
	})
}

func testEndpoint() EndpointConfig {
	return EndpointConfig{Host: "localhost", Port: 32640}
}

func TestAgent_InitializeRetriesConflictsForever(t *testing.T) {
	client := newFakeDIRClient()
	client.forceConflictOn = 3

	a := New(Config{
		UUID:                  "svc-init",
		Client:                client,
		Generator:             testGenerator("svc-init"),
		Endpoint:              testEndpoint(),
		ConflictRetryInterval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if a.GetLastHeartbeat().IsZero() {
		t.Fatal("expected LastHeartbeat to be set after Initialize")
	}
	if client.setCalls != 4 {
		t.Fatalf("expected 4 ServiceRegister calls (3 conflicts + 1 success), got %d", client.setCalls)
	}
}

func TestAgent_InitializeFailsFastOnNonConflictError(t *testing.T) {
	client := newFakeDIRClient()
	client.forceGetErr = errContextDeadlineForTest

	a := New(Config{
		UUID:      "svc-fail",
		Client:    client,
		Generator: testGenerator("svc-fail"),
		Endpoint:  testEndpoint(),
	})

	err := a.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected Initialize to return the underlying error")
	}
}

func TestAgent_RunAdvancesHeartbeatEachTick(t *testing.T) {
	client := newFakeDIRClient()
	a := New(Config{
		UUID:           "svc-run",
		Client:         client,
		Generator:      testGenerator("svc-run"),
		Endpoint:       testEndpoint(),
		UpdateInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	first := a.GetLastHeartbeat()

	a.Start(ctx)
	defer a.Shutdown(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.GetLastHeartbeat().After(first) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("heartbeat never advanced past the Initialize-time value")
}

func TestAgent_ShutdownStopsWorkerAndIsIdempotent(t *testing.T) {
	client := newFakeDIRClient()
	a := New(Config{
		UUID:           "svc-shutdown",
		Client:         client,
		Generator:      testGenerator("svc-shutdown"),
		Endpoint:       testEndpoint(),
		UpdateInterval: 5 * time.Millisecond,
	})

	ctx := context.Background()
	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	a.Start(ctx)

	done := make(chan struct{})
	go func() {
		a.Shutdown(context.Background())
		a.Shutdown(context.Background()) // must not panic or deadlock
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return")
	}
}

func TestAgent_PauseOperationBlocksUntilWorkerIdle(t *testing.T) {
	client := newFakeDIRClient()
	a := New(Config{
		UUID:           "svc-pause",
		Client:         client,
		Generator:      testGenerator("svc-pause"),
		Endpoint:       testEndpoint(),
		UpdateInterval: time.Hour, // long enough that the worker is reliably asleep
	})

	ctx := context.Background()
	if err := a.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	a.Start(ctx)
	defer a.Shutdown(context.Background())

	done := make(chan struct{})
	go func() {
		a.PauseOperation()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("PauseOperation never returned")
	}
	a.ResumeOperation()
}

var errContextDeadlineForTest = context.DeadlineExceeded
