package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"novoape/internal/core"
	"novoape/internal/docstore"
	"novoape/internal/docstore/storetest"
	"novoape/internal/log"
	"novoape/internal/metrics"
)

func newTestAdapter(t *testing.T, opts ...Option) (*Adapter, *storetest.Recorder, *bytes.Buffer) {
	t.Helper()
	rec := storetest.NewRecorder()
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: log.FormatJSON, Output: &buf})
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(rec, opts...), rec, &buf
}

func TestSaveWritesItemDocument(t *testing.T) {
	a, rec, _ := newTestAdapter(t)
	cost := core.RecurringCost{ID: "rc1", Name: "Internet", Value: core.Reais(99.90), DueDay: 15}

	o := a.Save(context.Background(), "U", core.CollectionRecurringCosts, cost)
	if o.Failed() {
		t.Fatalf("unexpected failure: %v", o.Err)
	}
	if o.Path != "users/U/recurringCosts/rc1" {
		t.Fatalf("path = %s", o.Path)
	}

	writes := rec.Writes()
	if len(writes) != 1 || writes[0].Op != "set" {
		t.Fatalf("expected one set, got %+v", writes)
	}
	var got core.RecurringCost
	if err := json.Unmarshal(writes[0].Body, &got); err != nil {
		t.Fatal(err)
	}
	if got != cost {
		t.Fatalf("stored %+v, want %+v", got, cost)
	}
}

func TestDeleteAddressesSingleDocument(t *testing.T) {
	a, rec, _ := newTestAdapter(t)
	o := a.Delete(context.Background(), "U", core.CollectionRooms, "r1")
	if o.Failed() {
		t.Fatal(o.Err)
	}
	writes := rec.Writes()
	if len(writes) != 1 || writes[0].Op != "delete" || writes[0].Path != "users/U/rooms/r1" {
		t.Fatalf("unexpected writes %+v", writes)
	}
}

func TestSaveProjectNameMerges(t *testing.T) {
	a, rec, _ := newTestAdapter(t)
	ctx := context.Background()
	profile, _ := docstore.UserDoc("U")
	if err := rec.Store.Set(ctx, profile, []byte(`{"projectName":"Old","theme":"dark"}`)); err != nil {
		t.Fatal(err)
	}

	if o := a.SaveProjectName(ctx, "U", "Casa Nova"); o.Failed() {
		t.Fatal(o.Err)
	}
	body, err := rec.Store.Get(ctx, profile)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["projectName"] != "Casa Nova" || got["theme"] != "dark" {
		t.Fatalf("profile = %s", body)
	}
}

func TestSaveChecklistSectionWritesWholeSection(t *testing.T) {
	a, rec, _ := newTestAdapter(t)
	section := core.DefaultChecklist()[0]

	if o := a.SaveChecklistSection(context.Background(), "U", section); o.Failed() {
		t.Fatal(o.Err)
	}
	writes := rec.Writes()
	if len(writes) != 1 || writes[0].Path != "users/U/checklist/before" {
		t.Fatalf("unexpected writes %+v", writes)
	}
	var got core.ChecklistSection
	if err := json.Unmarshal(writes[0].Body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != len(section.Items) {
		t.Fatalf("stored %d items, want %d", len(got.Items), len(section.Items))
	}
}

func TestFailedWriteIsLoggedCountedAndReported(t *testing.T) {
	m := metrics.New()
	var reported []Outcome
	sink := SinkFunc(func(_ context.Context, o Outcome) error {
		reported = append(reported, o)
		return nil
	})
	a, rec, buf := newTestAdapter(t, WithMetrics(m), WithSink(sink))
	rec.FailWrites(true)

	o := a.Save(context.Background(), "U", core.CollectionPurchases, core.PurchaseItem{ID: "p1", Store: "Loja", ItemName: "Mesa"})
	if !errors.Is(o.Err, storetest.ErrInjected) {
		t.Fatalf("outcome error = %v", o.Err)
	}
	if len(reported) != 1 || reported[0].Path != "users/U/purchases/p1" || len(reported[0].Body) == 0 {
		t.Fatalf("sink got %+v", reported)
	}
	if got := testutil.ToFloat64(m.StoreOps.WithLabelValues(core.CollectionPurchases, "save", metrics.ResultError)); got != 1 {
		t.Fatalf("error counter = %v", got)
	}
	if !strings.Contains(buf.String(), "Document store operation failed") {
		t.Fatalf("expected failure log, got %s", buf.String())
	}
}

func TestSinkErrorIsCountedNotReturned(t *testing.T) {
	m := metrics.New()
	sink := SinkFunc(func(context.Context, Outcome) error { return errors.New("broker down") })
	a, rec, _ := newTestAdapter(t, WithMetrics(m), WithSink(sink))
	rec.FailWrites(true)

	o := a.Delete(context.Background(), "U", core.CollectionRooms, "r1")
	if !errors.Is(o.Err, storetest.ErrInjected) {
		t.Fatalf("outcome error = %v", o.Err)
	}
	if got := testutil.ToFloat64(m.OutcomesDropped); got != 1 {
		t.Fatalf("dropped counter = %v", got)
	}
}

func TestInvalidIDNeverReachesStore(t *testing.T) {
	a, rec, _ := newTestAdapter(t)
	o := a.Save(context.Background(), "U", core.CollectionRooms, core.Room{ID: "a/b", Name: "Sala"})
	if !errors.Is(o.Err, docstore.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", o.Err)
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("store was called: %+v", rec.Calls())
	}
}
