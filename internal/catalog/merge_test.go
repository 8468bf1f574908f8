package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedup(t *testing.T) {
	in := []Entry{
		{Name: "A", URI: "http://u1"},
		{Name: "B", URI: "http://u2"},
		{Name: "A", URI: "http://u1"},
		{Name: "C", URI: "http://u2"},
	}

	unique, dropped := Dedup(in)

	assert.Equal(t, []Entry{{Name: "A", URI: "http://u1"}, {Name: "B", URI: "http://u2"}}, unique)
	assert.Equal(t, []Entry{{Name: "A", URI: "http://u1"}, {Name: "C", URI: "http://u2"}}, dropped)
}

func TestMergeGroup(t *testing.T) {
	x1 := Entry{Name: "X", URI: "http://u1"}
	y2 := Entry{Name: "Y", URI: "http://u2"}
	x3 := Entry{Name: "X", URI: "http://u3"}
	opaque := Token{Kind: TokenOpaque, Raw: "# note"}

	t.Run("confirmed first then carried remainder", func(t *testing.T) {
		persisted := []Token{EntryToken(x1), EntryToken(y2)}
		got := MergeGroup(persisted, []Entry{x3}, []string{x3.URI})
		assert.Equal(t, []Entry{x3, y2}, EntriesOf(got))
	})

	t.Run("failed resubmitted entry is dropped", func(t *testing.T) {
		persisted := []Token{EntryToken(x1), EntryToken(y2)}
		got := MergeGroup(persisted, nil, []string{y2.URI})
		assert.Equal(t, []Entry{x1}, EntriesOf(got))
	})

	t.Run("opaque lines are carried in place", func(t *testing.T) {
		persisted := []Token{EntryToken(x1), opaque, EntryToken(y2)}
		got := MergeGroup(persisted, []Entry{x3}, nil)
		assert.Equal(t, []Token{EntryToken(x3), opaque, EntryToken(y2)}, got)
	})

	t.Run("persisted raw text is kept byte-identical", func(t *testing.T) {
		raw := ClassifyLine(" Y , http://u2 \r")
		got := MergeGroup([]Token{raw}, nil, nil)
		assert.Equal(t, " Y , http://u2 \r", got[0].Raw)
	})

	t.Run("confirmed entry matching by uri replaces old name", func(t *testing.T) {
		renamed := Entry{Name: "Z", URI: "http://u1"}
		got := MergeGroup([]Token{EntryToken(x1)}, []Entry{renamed}, nil)
		assert.Equal(t, []Entry{renamed}, EntriesOf(got))
	})
}

func TestLimitPerName(t *testing.T) {
	ranked := []Ranked{
		{Entry: Entry{Name: "A", URI: "http://a1"}, Latency: 300 * time.Millisecond},
		{Entry: Entry{Name: "B", URI: "http://b1"}, Latency: 50 * time.Millisecond},
		{Entry: Entry{Name: "A", URI: "http://a2"}, Latency: 100 * time.Millisecond},
		{Entry: Entry{Name: "A", URI: "http://a3"}, Latency: 200 * time.Millisecond},
	}

	got := LimitPerName(ranked, 2)

	var uris []string
	for _, r := range got {
		uris = append(uris, r.Entry.URI)
	}
	assert.Equal(t, []string{"http://b1", "http://a2", "http://a3"}, uris)
	assert.Len(t, LimitPerName(ranked, 0), 4)

	ranked[0].Score = 0.9
	got = LimitPerName(ranked, 1)
	assert.Equal(t, "http://a1", got[0].Entry.URI, "score outranks latency")
	assert.Len(t, got, 2)
}

func TestSameMembership(t *testing.T) {
	a := Entry{Name: "A", URI: "http://a"}
	b := Entry{Name: "B", URI: "http://b"}

	assert.True(t, SameMembership([]Entry{a, b}, []Entry{b, a}))
	assert.True(t, SameMembership([]Entry{a, a, b}, []Entry{b, a}))
	assert.True(t, SameMembership(nil, nil))
	assert.False(t, SameMembership([]Entry{a}, []Entry{a, b}))
	assert.False(t, SameMembership([]Entry{a, b}, []Entry{a}))
	assert.False(t, SameMembership([]Entry{{Name: "A2", URI: "http://a"}}, []Entry{a}))
}
