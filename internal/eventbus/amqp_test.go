package eventbus

import "testing"

func TestNewAMQPBus_PropagatesDialErrors(t *testing.T) {
	// No broker listens here; NewAMQPBus must surface the dial failure
	// rather than returning a half-constructed bus.
	_, err := NewAMQPBus("amqp://127.0.0.1:1/", "lifecycle", testLogger())
	if err == nil {
		t.Fatal("expected an error dialing a nonexistent amqp broker")
	}
}
