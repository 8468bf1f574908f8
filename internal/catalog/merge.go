package catalog

import (
	"cmp"
	"slices"
	"time"
)

// Dedup collapses entries by URI. The first occurrence of a URI wins; later
// duplicates are returned separately so callers can log them.
func Dedup(entries []Entry) (unique, dropped []Entry) {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.URI]; ok {
			dropped = append(dropped, e)
			continue
		}
		seen[e.URI] = struct{}{}
		unique = append(unique, e)
	}
	return unique, dropped
}

// Ranked is a confirmed entry with the latency that confirmed it and an
// optional history score (higher is better).
type Ranked struct {
	Entry   Entry
	Latency time.Duration
	Score   float64
}

// LimitPerName keeps at most n entries per display name, preferring the
// highest score and then the lowest latency. Relative order of the kept entries is unchanged.
// n <= 0 means no limit.
func LimitPerName(ranked []Ranked, n int) []Ranked {
	if n <= 0 {
		return ranked
	}

	byName := make(map[string][]int)
	for i, r := range ranked {
		byName[r.Entry.Name] = append(byName[r.Entry.Name], i)
	}

	keep := make([]bool, len(ranked))
	for _, idx := range byName {
		slices.SortStableFunc(idx, func(a, b int) int {
			if c := cmp.Compare(ranked[b].Score, ranked[a].Score); c != 0 {
				return c
			}
			return cmp.Compare(ranked[a].Latency, ranked[b].Latency)
		})
		for _, i := range idx[:min(n, len(idx))] {
			keep[i] = true
		}
	}

	out := make([]Ranked, 0, len(ranked))
	for i, r := range ranked {
		if keep[i] {
			out = append(out, r)
		}
	}
	return out
}

// MergeGroup builds the new body of a group.
//
// Confirmed entries come first in the given order. The persisted body
// follows in its original order, minus entries that share a name or URI
// with a confirmed entry and minus entries whose URI is in probed (they were
// re-verified this run and did not pass). Opaque lines are always carried.
func MergeGroup(persisted []Token, confirmed []Entry, probed []string) []Token {
	names := make(map[string]struct{}, len(confirmed))
	uris := make(map[string]struct{}, len(confirmed)+len(probed))
	for _, e := range confirmed {
		names[e.Name] = struct{}{}
		uris[e.URI] = struct{}{}
	}
	for _, u := range probed {
		uris[u] = struct{}{}
	}

	out := make([]Token, 0, len(confirmed)+len(persisted))
	for _, e := range confirmed {
		out = append(out, EntryToken(e))
	}
	for _, t := range persisted {
		if t.Kind == TokenEntry {
			if _, ok := names[t.Entry.Name]; ok {
				continue
			}
			if _, ok := uris[t.Entry.URI]; ok {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// EntriesOf returns the entries among tokens.
func EntriesOf(tokens []Token) []Entry {
	var out []Entry
	for _, t := range tokens {
		if t.Kind == TokenEntry {
			out = append(out, t.Entry)
		}
	}
	return out
}

// SameMembership reports whether a and b hold the same set of
// (name, URI) pairs. Order and multiplicity are ignored.
func SameMembership(a, b []Entry) bool {
	setA := make(map[Entry]struct{}, len(a))
	for _, e := range a {
		setA[e] = struct{}{}
	}
	setB := make(map[Entry]struct{}, len(b))
	for _, e := range b {
		if _, ok := setA[e]; !ok {
			return false
		}
		setB[e] = struct{}{}
	}
	return len(setA) == len(setB)
}
