package sheets

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/alexrabarts/ceo-agent/internal/apperr"
)

func TestMemoryStoreReadRange(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Seed("Tasks",
		[]string{"created_at", "text", "owner", "status"},
		[]string{"2026-01-01", "first", "Ann", "new"},
		[]string{"2026-01-02", "second", "", "done", ""},
	)

	rows, err := store.ReadRange(ctx, "Tasks", "A2:F")
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}

	want := [][]string{
		{"2026-01-01", "first", "Ann", "new"},
		{"2026-01-02", "second", "", "done"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("ReadRange() = %v, want %v", rows, want)
	}

	cols, err := store.ReadRange(ctx, "Tasks", "B2:C2")
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if !reflect.DeepEqual(cols, [][]string{{"first", "Ann"}}) {
		t.Errorf("ReadRange(B2:C2) = %v", cols)
	}
}

func TestMemoryStoreEmptySheetIsNotAnError(t *testing.T) {
	rows, err := NewMemoryStore().ReadRange(context.Background(), "Nothing", "A2:E")
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("ReadRange() = %#v, want empty non-nil", rows)
	}
}

func TestMemoryStoreRejectsSheetQualifiedRange(t *testing.T) {
	store := NewMemoryStore()
	store.Seed("Tasks", []string{"h"}, []string{"row"})

	for _, a1 := range []string{"Tasks!A2:F2", RowRange("Tasks", 2, 6)} {
		_, err := store.ReadRange(context.Background(), "Tasks", a1)
		if !errors.Is(err, apperr.ErrUpstreamUnavailable) {
			t.Errorf("ReadRange(%q) error = %v, want ErrUpstreamUnavailable", a1, err)
		}
	}
}

func TestMemoryStoreAppendAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.AppendRow(ctx, "Log", []string{"a"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendRow(ctx, "Log", []string{"b"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateRow(ctx, "Log", 2, []string{"B", "x"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateRow(ctx, "Log", 4, []string{"d"}); err != nil {
		t.Fatal(err)
	}

	want := [][]string{{"a"}, {"B", "x"}, nil, {"d"}}
	if got := store.Rows("Log"); !reflect.DeepEqual(got, want) {
		t.Errorf("Rows() = %#v, want %#v", got, want)
	}
}

func TestMemoryStoreInjectedFailures(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.FailReads["Tasks"] = errors.New("offline")
	store.FailWrites["Tasks"] = errors.New("quota")

	if _, err := store.ReadRange(ctx, "Tasks", "A2:F"); !errors.Is(err, apperr.ErrUpstreamUnavailable) {
		t.Errorf("ReadRange() error = %v, want upstream unavailable", err)
	}
	if err := store.AppendRow(ctx, "Tasks", []string{"x"}); !errors.Is(err, apperr.ErrStoreWrite) {
		t.Errorf("AppendRow() error = %v, want store write", err)
	}
	if err := store.UpdateRow(ctx, "Tasks", 2, []string{"x"}); !errors.Is(err, apperr.ErrStoreWrite) {
		t.Errorf("UpdateRow() error = %v, want store write", err)
	}
}
