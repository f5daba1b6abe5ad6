// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package sim

import (
	"context"
	"fmt"
	"sync"
)

// Board is an in-process capability directory. Ids are stable for the life
// of the Board: requesting an id for an already listed value returns the
// existing id.
type Board struct {
	mtx    sync.Mutex
	nextID int
	toID   map[any]string
	toVal  map[string]any
}

// NewBoard creates an empty Board.
func NewBoard() *Board {
	return &Board{
		nextID: 1000,
		toID:   make(map[any]string),
		toVal:  make(map[string]any),
	}
}

// ID returns the board id for the value, assigning a fresh one on first
// sight.
func (b *Board) ID(_ context.Context, value any) (string, error) {
	if value == nil {
		return "", fmt.Errorf("cannot board a nil value")
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if id, listed := b.toID[value]; listed {
		return id, nil
	}
	id := fmt.Sprintf("board%04d", b.nextID)
	b.nextID++
	b.toID[value] = id
	b.toVal[id] = value
	return id, nil
}

// Value resolves a board id back to its value.
func (b *Board) Value(_ context.Context, id string) (any, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	val, listed := b.toVal[id]
	if !listed {
		return nil, fmt.Errorf("board has no listing %q", id)
	}
	return val, nil
}
