// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"encoding/json"
	"sort"
	"sync"
)

// offerBook is the authoritative mapping from offer id to offer record. Every
// mutation triggers the registered change hook with a fresh serialized
// snapshot. Records are copied in and out, so the stored state is only ever
// mutated through create and update.
type offerBook struct {
	mtx    sync.RWMutex
	offers map[string]*OfferRecord
	// onChange receives the serialized snapshot after every mutation.
	onChange func(snapshot string)
}

func newOfferBook(onChange func(string)) *offerBook {
	if onChange == nil {
		onChange = func(string) {}
	}
	return &offerBook{
		offers:   make(map[string]*OfferRecord),
		onChange: onChange,
	}
}

// create adds a new record. The id must not exist.
func (b *offerBook) create(rec *OfferRecord) error {
	b.mtx.Lock()
	if _, exists := b.offers[rec.ID]; exists {
		b.mtx.Unlock()
		return newError(dupeIDErr, "offer id %q already exists", rec.ID)
	}
	b.offers[rec.ID] = copyRecord(rec)
	b.mtx.Unlock()
	b.onChange(b.snapshot())
	return nil
}

// update applies the patch to the stored record and returns a copy of the
// result.
func (b *offerBook) update(id string, patch func(*OfferRecord)) (*OfferRecord, error) {
	b.mtx.Lock()
	rec, found := b.offers[id]
	if !found {
		b.mtx.Unlock()
		return nil, newError(notFoundErr, "unknown offer id %q", id)
	}
	patch(rec)
	updated := copyRecord(rec)
	b.mtx.Unlock()
	b.onChange(b.snapshot())
	return updated, nil
}

// get returns a copy of the record.
func (b *offerBook) get(id string) (*OfferRecord, bool) {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	rec, found := b.offers[id]
	if !found {
		return nil, false
	}
	return copyRecord(rec), true
}

// list returns copies of the records matching the filter, sorted by id
// ascending. The sort makes the result deterministic regardless of the order
// updates arrived in.
func (b *offerBook) list(filter *OfferFilter) []*OfferRecord {
	b.mtx.RLock()
	recs := make([]*OfferRecord, 0, len(b.offers))
	for _, rec := range b.offers {
		if filter != nil && filter.Origin != nil && rec.RequestContext.Origin != *filter.Origin {
			continue
		}
		recs = append(recs, copyRecord(rec))
	}
	b.mtx.RUnlock()
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// snapshot serializes all records, sorted by id ascending, to canonical JSON.
func (b *offerBook) snapshot() string {
	recs := b.list(nil)
	bs, err := json.Marshal(recs)
	if err != nil {
		// Records contain only JSON-encodable fields, so this is
		// unreachable short of a programming error.
		log.Errorf("offer snapshot encode error: %v", err)
		return "[]"
	}
	return string(bs)
}
