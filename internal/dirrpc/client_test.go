package dirrpc

import (
	"errors"
	"testing"

	heartbeat "github.com/xtreemfs/heartbeat-agent"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTranslateError_AbortedBecomesConflict(t *testing.T) {
	err := translateError(status.Error(codes.Aborted, "version mismatch"))
	if !heartbeat.IsConflict(err) {
		t.Fatalf("expected a conflict error, got %v", err)
	}
}

func TestTranslateError_OtherCodesPassThrough(t *testing.T) {
	orig := status.Error(codes.Unavailable, "dir unreachable")
	err := translateError(orig)
	if heartbeat.IsConflict(err) {
		t.Fatal("codes.Unavailable must not be treated as a conflict")
	}
	if err == nil {
		t.Fatal("expected the original error to propagate")
	}
}

func TestTranslateError_NilStaysNil(t *testing.T) {
	if translateError(nil) != nil {
		t.Fatal("expected nil to propagate unchanged")
	}
}

func TestTranslateError_NonStatusErrorPassesThrough(t *testing.T) {
	orig := errors.New("dial tcp: connection refused")
	if err := translateError(orig); err != orig {
		t.Fatalf("expected the original error unchanged, got %v", err)
	}
}

func TestWireRoundTrip_ServiceRecord(t *testing.T) {
	rec := heartbeat.ServiceRecord{
		UUID: "uuid-1", Type: heartbeat.ServiceTypeOSD, Name: "osd-1", Version: 3,
		Data: map[string]string{"free": "100"},
	}
	got := fromWire(toWire(rec))
	if got.UUID != rec.UUID {
		t.Fatalf("uuid mismatch after round trip: %+v", got)
	}
	if got.Version != rec.Version || got.Name != rec.Name || got.Type != rec.Type {
		t.Fatalf("round trip changed the record: got %+v, want %+v", got, rec)
	}
	if got.Data["free"] != "100" {
		t.Fatalf("data map lost in round trip: %+v", got.Data)
	}
}

func TestWireRoundTrip_AddressMapping(t *testing.T) {
	m := heartbeat.AddressMapping{
		UUID: "uuid-1", Version: 2, Protocol: heartbeat.ProtocolTLS,
		Address: "10.0.0.1", Port: 32640, MatchNetwork: "*", TTLSeconds: 3600, URI: "oncrpcs://10.0.0.1:32640",
	}
	got := mappingFromWire(mappingToWire(m))
	if got != m {
		t.Fatalf("round trip changed the mapping: got %+v, want %+v", got, m)
	}
}
