// Package timeindex provides an immutable multi-map ordered by timestamp.
// Values sharing a timestamp are kept together in insertion order. Removal
// returns a new Index and leaves the receiver untouched.
package timeindex

import (
	"sort"
	"time"
)

// Entry is one timestamp and the values recorded at it.
type Entry[V any] struct {
	Key    time.Time
	Values []V
}

// Index is an ordered multi-map keyed by timestamp.
type Index[V any] struct {
	entries []Entry[V]
}

// New groups values by key. Values keep their relative order within a group.
func New[V any](values []V, key func(V) time.Time) Index[V] {
	groups := make(map[int64]int)
	var entries []Entry[V]
	for _, v := range values {
		k := key(v)
		nk := k.UnixNano()
		if i, ok := groups[nk]; ok {
			entries[i].Values = append(entries[i].Values, v)
			continue
		}
		groups[nk] = len(entries)
		entries = append(entries, Entry[V]{Key: k, Values: []V{v}})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key.Before(entries[j].Key) })
	return Index[V]{entries: entries}
}

// Len returns the number of distinct timestamps.
func (ix Index[V]) Len() int { return len(ix.entries) }

// Entries returns the groups in ascending key order.
func (ix Index[V]) Entries() []Entry[V] {
	out := make([]Entry[V], len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Get returns the values recorded at t.
func (ix Index[V]) Get(t time.Time) ([]V, bool) {
	i := ix.search(t)
	if i < len(ix.entries) && ix.entries[i].Key.Equal(t) {
		return ix.entries[i].Values, true
	}
	return nil, false
}

// FirstAtOrAfter returns the earliest group whose key is not before t.
func (ix Index[V]) FirstAtOrAfter(t time.Time) (Entry[V], bool) {
	i := ix.search(t)
	if i == len(ix.entries) {
		return Entry[V]{}, false
	}
	return ix.entries[i], true
}

// Without returns a new index with the group at t removed.
func (ix Index[V]) Without(t time.Time) Index[V] {
	i := ix.search(t)
	if i == len(ix.entries) || !ix.entries[i].Key.Equal(t) {
		return ix
	}
	out := make([]Entry[V], 0, len(ix.entries)-1)
	out = append(out, ix.entries[:i]...)
	out = append(out, ix.entries[i+1:]...)
	return Index[V]{entries: out}
}

// SplitBefore returns the groups with keys before t, and a new index holding
// the rest.
func (ix Index[V]) SplitBefore(t time.Time) ([]Entry[V], Index[V]) {
	i := ix.search(t)
	head := make([]Entry[V], i)
	copy(head, ix.entries[:i])
	tail := make([]Entry[V], len(ix.entries)-i)
	copy(tail, ix.entries[i:])
	return head, Index[V]{entries: tail}
}

func (ix Index[V]) search(t time.Time) int {
	return sort.Search(len(ix.entries), func(i int) bool { return !ix.entries[i].Key.Before(t) })
}
