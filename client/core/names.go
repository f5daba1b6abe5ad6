// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"sort"
	"sync"

	"hostwallet.org/hostwallet/wallet/token"
)

// petnameMap is a bidirectional mapping between user-chosen petnames and
// capability values of one kind. Bindings are immutable once made, and
// lookups succeed in both directions.
type petnameMap[V comparable] struct {
	kind   string
	mtx    sync.RWMutex
	toVal  map[string]V
	toName map[V]string
}

func newPetnameMap[V comparable](kind string) *petnameMap[V] {
	return &petnameMap[V]{
		kind:   kind,
		toVal:  make(map[string]V),
		toName: make(map[V]string),
	}
}

// bind associates the petname with the value. Both the petname and the value
// must be unbound.
func (m *petnameMap[V]) bind(petname string, val V) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, exists := m.toVal[petname]; exists {
		return newError(dupePetnameErr, "%s petname %q already used in wallet", m.kind, petname)
	}
	if name, exists := m.toName[val]; exists {
		return newError(dupePetnameErr, "%s already bound to petname %q", m.kind, name)
	}
	m.toVal[petname] = val
	m.toName[val] = petname
	return nil
}

// resolve returns the value bound to the petname.
func (m *petnameMap[V]) resolve(petname string) (V, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	val, found := m.toVal[petname]
	if !found {
		return val, newError(notFoundErr, "unknown %s petname %q", m.kind, petname)
	}
	return val, nil
}

// reverseResolve returns the petname bound to the value.
func (m *petnameMap[V]) reverseResolve(val V) (string, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	name, found := m.toName[val]
	if !found {
		return "", newError(notFoundErr, "no %s petname bound", m.kind)
	}
	return name, nil
}

// petnames returns all bound petnames, sorted.
func (m *petnameMap[V]) petnames() []string {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	names := make([]string, 0, len(m.toVal))
	for name := range m.toVal {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// redact recursively replaces recognized capability references with their
// petnames so the result is safe to send to an external observer. Brands
// become brand petnames, purses become purse petnames, amounts become
// DisplayAmounts. Unrecognized data passes through untouched.
func (c *Core) redact(v any) any {
	switch val := v.(type) {
	case *xcPurse:
		if name, err := c.purseNames.reverseResolve(val); err == nil {
			return name
		}
		return v
	case token.Amount:
		return DisplayAmount{Brand: c.brandPetname(val.Brand), Extent: val.Extent}
	case token.Brand:
		if name, err := c.brandNames.reverseResolve(val); err == nil {
			return name
		}
		return v
	case map[string]any:
		redacted := make(map[string]any, len(val))
		for k, entry := range val {
			redacted[k] = c.redact(entry)
		}
		return redacted
	case []any:
		redacted := make([]any, len(val))
		for i, entry := range val {
			redacted[i] = c.redact(entry)
		}
		return redacted
	default:
		return v
	}
}

// brandPetname is reverseResolve with the brand's label as a fallback for
// display purposes.
func (c *Core) brandPetname(brand token.Brand) string {
	if name, err := c.brandNames.reverseResolve(brand); err == nil {
		return name
	}
	if brand == nil {
		return ""
	}
	return brand.Label()
}
