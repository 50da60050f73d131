package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"novoape/internal/amqp"
	"novoape/internal/docstore"
	"novoape/internal/docstore/storetest"
	"novoape/internal/metrics"
)

func TestReplayAppliesEachOp(t *testing.T) {
	rec := storetest.NewRecorder()
	m := metrics.New()
	r := NewReplayer(rec, m, nil, 0)
	ctx := context.Background()
	now := time.Now()

	msgs := []*amqp.WriteFailedMessage{
		{Op: "save", Path: "users/U/rooms/r1", Body: json.RawMessage(`{"id":"r1","name":"Sala"}`), Timestamp: now},
		{Op: "merge", Path: "users/U", Body: json.RawMessage(`{"projectName":"Casa"}`), Timestamp: now},
		{Op: "delete", Path: "users/U/rooms/r1", Timestamp: now},
	}
	for _, msg := range msgs {
		if err := r.HandleWriteFailed(ctx, msg); err != nil {
			t.Fatalf("%s: %v", msg.Op, err)
		}
	}

	writes := rec.Writes()
	if len(writes) != 3 || writes[0].Op != "set" || writes[1].Op != "merge" || writes[2].Op != "delete" {
		t.Fatalf("writes = %+v", writes)
	}
	if _, err := rec.Get(ctx, docstore.Path("users/U/rooms/r1")); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("room should be deleted, got %v", err)
	}
	if got := testutil.ToFloat64(m.Replays.WithLabelValues(metrics.ResultOK)); got != 3 {
		t.Fatalf("replays ok = %v", got)
	}
}

func TestReplayStoreErrorRequeues(t *testing.T) {
	rec := storetest.NewRecorder()
	rec.FailWrites(true)
	r := NewReplayer(rec, nil, nil, 0)

	err := r.HandleWriteFailed(context.Background(), &amqp.WriteFailedMessage{
		Op: "delete", Path: "users/U/rooms/r1", Timestamp: time.Now(),
	})
	if !errors.Is(err, storetest.ErrInjected) {
		t.Fatalf("err = %v", err)
	}
}

func TestReplayDropsUnusableMessages(t *testing.T) {
	rec := storetest.NewRecorder()
	r := NewReplayer(rec, nil, nil, time.Hour)
	ctx := context.Background()

	for name, msg := range map[string]*amqp.WriteFailedMessage{
		"collection path": {Op: "delete", Path: "users/U/rooms", Timestamp: time.Now()},
		"stale":           {Op: "delete", Path: "users/U/rooms/r1", Timestamp: time.Now().Add(-2 * time.Hour)},
		"unknown op":      {Op: "patch", Path: "users/U/rooms/r1", Timestamp: time.Now()},
	} {
		t.Run(name, func(t *testing.T) {
			if err := r.HandleWriteFailed(ctx, msg); err != nil {
				t.Fatalf("expected drop without error, got %v", err)
			}
		})
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("store touched: %+v", rec.Calls())
	}
}

func TestReplaySkipsSupersededWrite(t *testing.T) {
	rec := storetest.NewRecorder()
	m := metrics.New()
	r := NewReplayer(rec, m, nil, 0)
	ctx := context.Background()
	path := docstore.Path("users/U/rooms/r1")
	failedAt := time.Now().Add(-time.Minute)

	// A later interactive write reached the store after the failure.
	if err := rec.Set(ctx, path, []byte(`{"id":"r1","name":"Quarto"}`)); err != nil {
		t.Fatal(err)
	}
	rec.Reset()

	err := r.HandleWriteFailed(ctx, &amqp.WriteFailedMessage{
		Op: "save", Path: path.String(), Body: json.RawMessage(`{"id":"r1","name":"Sala"}`), Timestamp: failedAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if w := rec.Writes(); len(w) != 0 {
		t.Fatalf("superseded write replayed: %+v", w)
	}
	body, err := rec.Get(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"id":"r1","name":"Quarto"}` {
		t.Fatalf("body = %s", body)
	}
	if got := testutil.ToFloat64(m.Replays.WithLabelValues(metrics.ResultSuperseded)); got != 1 {
		t.Fatalf("superseded replays = %v", got)
	}

	// A later delete must not be undone either.
	if err := rec.Delete(ctx, path); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleWriteFailed(ctx, &amqp.WriteFailedMessage{
		Op: "save", Path: path.String(), Body: json.RawMessage(`{"id":"r1","name":"Sala"}`), Timestamp: failedAt,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Get(ctx, path); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("deleted room came back, err = %v", err)
	}
}

func TestReplayKeepsFailureOrder(t *testing.T) {
	rec := storetest.NewRecorder()
	r := NewReplayer(rec, nil, nil, 0)
	ctx := context.Background()
	path := "users/U/rooms/r1"
	first := time.Now().Add(-2 * time.Minute)

	for _, msg := range []*amqp.WriteFailedMessage{
		{Op: "save", Path: path, Body: json.RawMessage(`{"id":"r1","name":"Sala"}`), Timestamp: first},
		{Op: "save", Path: path, Body: json.RawMessage(`{"id":"r1","name":"Quarto"}`), Timestamp: first.Add(time.Minute)},
	} {
		if err := r.HandleWriteFailed(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}
	if w := rec.Writes(); len(w) != 2 {
		t.Fatalf("expected both failures replayed, got %+v", w)
	}
	body, _ := rec.Get(ctx, docstore.Path(path))
	if string(body) != `{"id":"r1","name":"Quarto"}` {
		t.Fatalf("body = %s", body)
	}
}
