// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"sync"
	"testing"
)

func tRecord(id string) *OfferRecord {
	return &OfferRecord{
		ID:            id,
		InviteBoardID: "inv1",
	}
}

func TestOfferBook(t *testing.T) {
	var mtx sync.Mutex
	var changes int
	book := newOfferBook(func(string) {
		mtx.Lock()
		changes++
		mtx.Unlock()
	})

	if err := book.create(tRecord("a#1")); err != nil {
		t.Fatalf("create error: %v", err)
	}
	if err := book.create(tRecord("a#1")); !errorHasCode(err, dupeIDErr) {
		t.Fatalf("expected dupeIDErr, got %v", err)
	}
	if _, err := book.update("ghost", func(*OfferRecord) {}); !errorHasCode(err, notFoundErr) {
		t.Fatalf("expected notFoundErr, got %v", err)
	}

	updated, err := book.update("a#1", func(rec *OfferRecord) {
		rec.Status = StatusPending
	})
	if err != nil {
		t.Fatalf("update error: %v", err)
	}
	if updated.Status != StatusPending {
		t.Fatalf("patch not applied")
	}
	// Mutating the returned copy must not reach the store.
	updated.Status = StatusAccepted
	if rec, _ := book.get("a#1"); rec.Status != StatusPending {
		t.Fatalf("store aliased to returned record")
	}

	mtx.Lock()
	if changes != 2 {
		t.Fatalf("expected 2 change callbacks, got %d", changes)
	}
	mtx.Unlock()
}

func TestOfferBookOrdering(t *testing.T) {
	book := newOfferBook(nil)
	for _, id := range []string{"b#2", "a#9", "b#1", "a#10"} {
		if err := book.create(tRecord(id)); err != nil {
			t.Fatalf("create error: %v", err)
		}
	}
	want := []string{"a#10", "a#9", "b#1", "b#2"}
	for i := 0; i < 5; i++ {
		recs := book.list(nil)
		if len(recs) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(recs))
		}
		for j, rec := range recs {
			if rec.ID != want[j] {
				t.Fatalf("record %d is %q, wanted %q", j, rec.ID, want[j])
			}
		}
	}
	snap := book.snapshot()
	for i := 0; i < 5; i++ {
		if again := book.snapshot(); again != snap {
			t.Fatalf("snapshot changed between calls")
		}
	}
}
