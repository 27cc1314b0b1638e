// Package collection provides generic, functional-style helpers for slices.
//
// Usage:
//
//	ids := collection.Map(photos, func(p models.Photo) int64 { return p.ID })
//	active := collection.Filter(list, func(m models.Model) bool { return m.IsActive })
//	groups := collection.GroupOrdered(specs, func(s models.Spec) string { return s.Category })
package collection

import (
	"sort"
	"strings"
)

// Map transforms each element of slice s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns elements of s for which fn returns true.
func Filter[T any](s []T, fn func(T) bool) []T {
	var out []T
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// Reject returns elements of s for which fn returns false (inverse of Filter).
func Reject[T any](s []T, fn func(T) bool) []T {
	return Filter(s, func(v T) bool { return !fn(v) })
}

// First returns the first element matching fn, or (zero, false).
func First[T any](s []T, fn func(T) bool) (T, bool) {
	for _, v := range s {
		if fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// IndexOf returns the position of the first element matching fn, or -1.
func IndexOf[T any](s []T, fn func(T) bool) int {
	for i, v := range s {
		if fn(v) {
			return i
		}
	}
	return -1
}

// Contains reports whether any element of s satisfies fn.
func Contains[T any](s []T, fn func(T) bool) bool {
	return IndexOf(s, fn) >= 0
}

// Count returns how many elements satisfy fn.
func Count[T any](s []T, fn func(T) bool) int {
	n := 0
	for _, v := range s {
		if fn(v) {
			n++
		}
	}
	return n
}

// Group is one bucket of GroupOrdered.
type Group[T any] struct {
	Key   string
	Items []T
}

// GroupOrdered partitions s by key, keeping groups in order of first
// appearance and items in input order.
func GroupOrdered[T any](s []T, key func(T) string) []Group[T] {
	var out []Group[T]
	index := map[string]int{}
	for _, v := range s {
		k := key(v)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Group[T]{Key: k})
		}
		out[i].Items = append(out[i].Items, v)
	}
	return out
}

// SortBy returns a stably sorted copy of s; s is not modified.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	out := make([]T, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// KeyBy indexes s by the key returned by fn. Later elements win.
func KeyBy[T any, K comparable](s []T, fn func(T) K) map[K]T {
	out := make(map[K]T, len(s))
	for _, v := range s {
		out[fn(v)] = v
	}
	return out
}

// FoldSet returns the lower-cased, trimmed set of the strings fn yields.
func FoldSet[T any](s []T, fn func(T) string) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for _, v := range s {
		out[Fold(fn(v))] = struct{}{}
	}
	return out
}

// Fold normalizes s for case-insensitive comparison.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ContainsFold reports whether sub occurs in any of fields, ignoring case.
// An empty sub matches everything.
func ContainsFold(sub string, fields ...string) bool {
	sub = Fold(sub)
	if sub == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), sub) {
			return true
		}
	}
	return false
}
