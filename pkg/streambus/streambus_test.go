package streambus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, 60*time.Second, zerolog.Nop())
}

func TestAppendReadAck_RoundTrip(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	if err := bus.Subscribe(ctx, "test_stream", "test_group"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	id, err := bus.Append(ctx, "test_stream", map[string]interface{}{
		"event_id": "evt-1",
		"headline": "Something happened",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id == "" {
		t.Fatal("Append should return a non-empty record ID")
	}

	records, err := bus.Read(ctx, "test_stream", "test_group", "consumer-1", 10, 100)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].String("event_id") != "evt-1" {
		t.Errorf("event_id = %q, want evt-1", records[0].String("event_id"))
	}

	if err := bus.Ack(ctx, "test_stream", "test_group", records[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	// A second read from a different consumer should see nothing new:
	// the record was already delivered to this group and has been acked.
	more, err := bus.Read(ctx, "test_stream", "test_group", "consumer-2", 10, 50)
	if err != nil {
		t.Fatalf("second Read: %v", err)
	}
	if len(more) != 0 {
		t.Fatalf("expected no further records after ack, got %d", len(more))
	}
}

// Competing consumers: a record delivered to one consumer in a group is
// not independently delivered to a second consumer in the same group.
func TestCompetingConsumers_NoDoubleDelivery(t *testing.T) {
	ctx := context.Background()
	bus := newTestBus(t)

	if err := bus.Subscribe(ctx, "competing_stream", "group_a"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := bus.Append(ctx, "competing_stream", map[string]interface{}{"k": "v"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	first, err := bus.Read(ctx, "competing_stream", "group_a", "consumer-1", 10, 50)
	if err != nil {
		t.Fatalf("Read consumer-1: %v", err)
	}
	second, err := bus.Read(ctx, "competing_stream", "group_a", "consumer-2", 10, 50)
	if err != nil {
		t.Fatalf("Read consumer-2: %v", err)
	}

	if len(first)+len(second) != 1 {
		t.Fatalf("expected exactly one consumer to receive the record, got %d and %d", len(first), len(second))
	}
}

func TestRecord_JSONField(t *testing.T) {
	rec := Record{Fields: map[string]string{"components": `{"probability":0.5,"impact":3}`}}

	var decoded struct {
		Probability float64 `json:"probability"`
		Impact      float64 `json:"impact"`
	}
	if err := rec.JSON("components", &decoded); err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if decoded.Probability != 0.5 || decoded.Impact != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestRecord_JSONField_MissingKey(t *testing.T) {
	rec := Record{Fields: map[string]string{}}
	var dst struct{}
	if err := rec.JSON("missing", &dst); err == nil {
		t.Fatal("expected an error for a missing field")
	}
}
