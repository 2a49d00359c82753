// Package vocab builds frequency-ranked, size-bounded vocabularies with
// stable integer indices.
//
// Two variants share one algorithm. The Dictionary variant assigns indices
// from 0 and feeds the n-gram assets. The Sequence variant reserves index 0
// for <PAD> and 1 for <UNK> and feeds training windows. The two vocabularies
// are independent and must not be mixed.
package vocab

import (
	"errors"
	"fmt"
	"slices"
)

// Sentinel words of the Sequence variant.
const (
	PadToken = "<PAD>"
	UnkToken = "<UNK>"

	PadIndex uint32 = 0
	UnkIndex uint32 = 1
)

// Variant selects the index-reservation policy.
type Variant int

const (
	Dictionary Variant = iota
	Sequence
)

func (v Variant) String() string {
	switch v {
	case Dictionary:
		return "dictionary"
	case Sequence:
		return "sequence"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// reserved returns the number of sentinel slots the variant occupies.
func (v Variant) reserved() int {
	if v == Sequence {
		return 2
	}

	return 0
}

// Entry is one vocabulary word. Sentinels carry a zero frequency.
type Entry struct {
	Word      string
	Frequency uint64
	Index     uint32
}

// Options bounds a Build.
type Options struct {
	MaxSize      int
	MinFrequency uint64
	Variant      Variant
}

// Counter accumulates per-token counts and remembers first-seen order.
type Counter struct {
	order  []string
	counts map[string]uint64
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[string]uint64)}
}

// Add counts one occurrence of token.
func (c *Counter) Add(token string) {
	if _, ok := c.counts[token]; !ok {
		c.order = append(c.order, token)
	}

	c.counts[token]++
}

// AddAll counts every token in order.
func (c *Counter) AddAll(tokens []string) {
	for _, tok := range tokens {
		c.Add(tok)
	}
}

// Set replaces the count of word. A word seen for the first time is
// appended to the first-seen order; a repeated word keeps its position.
func (c *Counter) Set(word string, n uint64) {
	if _, ok := c.counts[word]; !ok {
		c.order = append(c.order, word)
	}

	c.counts[word] = n
}

func (c *Counter) Count(word string) uint64 {
	return c.counts[word]
}

func (c *Counter) Len() int {
	return len(c.order)
}

// Vocabulary is an ordered (index, word) association list plus a lookup map.
// entries[i].Index == i for every i.
type Vocabulary struct {
	variant Variant
	entries []Entry
	index   map[string]uint32
}

var errNilCounter = errors.New("vocab: nil counter")

// Build filters, ranks and truncates the counted tokens.
//
// Tokens below MinFrequency are dropped silently. The rest are sorted by
// descending count; ties keep first-seen order so identical input always
// yields identical indices.
func Build(c *Counter, opts Options) (*Vocabulary, error) {
	if c == nil {
		return nil, errNilCounter
	}

	reserved := opts.Variant.reserved()
	if opts.MaxSize < reserved {
		return nil, fmt.Errorf("vocab: max size %d leaves no room for %d sentinel slots", opts.MaxSize, reserved)
	}

	ranked := make([]Entry, 0, len(c.order))
	for _, word := range c.order {
		if opts.Variant == Sequence && (word == PadToken || word == UnkToken) {
			continue
		}

		n := c.counts[word]
		if n < opts.MinFrequency {
			continue
		}

		ranked = append(ranked, Entry{Word: word, Frequency: n})
	}

	slices.SortStableFunc(ranked, func(a, b Entry) int {
		switch {
		case a.Frequency > b.Frequency:
			return -1
		case a.Frequency < b.Frequency:
			return 1
		default:
			return 0
		}
	})

	if limit := opts.MaxSize - reserved; len(ranked) > limit {
		ranked = ranked[:limit]
	}

	v := &Vocabulary{
		variant: opts.Variant,
		entries: make([]Entry, 0, len(ranked)+reserved),
		index:   make(map[string]uint32, len(ranked)+reserved),
	}

	if opts.Variant == Sequence {
		v.push(PadToken, 0)
		v.push(UnkToken, 0)
	}

	for _, e := range ranked {
		v.push(e.Word, e.Frequency)
	}

	return v, nil
}

// FromWords rebuilds a vocabulary from an already ordered word list, for
// example a decoded side table. Frequencies are unknown and left at zero.
func FromWords(variant Variant, words []string) (*Vocabulary, error) {
	v := &Vocabulary{
		variant: variant,
		entries: make([]Entry, 0, len(words)),
		index:   make(map[string]uint32, len(words)),
	}

	for i, w := range words {
		if _, dup := v.index[w]; dup {
			return nil, fmt.Errorf("vocab: duplicate word %q at index %d", w, i)
		}

		v.push(w, 0)
	}

	if variant == Sequence {
		if len(words) < 2 || words[PadIndex] != PadToken || words[UnkIndex] != UnkToken {
			return nil, fmt.Errorf("vocab: sequence vocabulary must start with %s, %s", PadToken, UnkToken)
		}
	}

	return v, nil
}

func (v *Vocabulary) push(word string, freq uint64) {
	idx := uint32(len(v.entries))
	v.entries = append(v.entries, Entry{Word: word, Frequency: freq, Index: idx})
	v.index[word] = idx
}

func (v *Vocabulary) Variant() Variant {
	return v.variant
}

func (v *Vocabulary) Len() int {
	return len(v.entries)
}

// Entries returns all entries in index order, sentinels included.
func (v *Vocabulary) Entries() []Entry {
	return append([]Entry(nil), v.entries...)
}

// Words returns the entries that correspond to real corpus words.
func (v *Vocabulary) Words() []Entry {
	return append([]Entry(nil), v.entries[v.variant.reserved():]...)
}

// Index looks up word.
func (v *Vocabulary) Index(word string) (uint32, bool) {
	idx, ok := v.index[word]
	return idx, ok
}

// Lookup returns the index of word, or <UNK> for the Sequence variant.
// Dictionary vocabularies fall back to 0.
func (v *Vocabulary) Lookup(word string) uint32 {
	if idx, ok := v.index[word]; ok {
		return idx
	}

	if v.variant == Sequence {
		return UnkIndex
	}

	return 0
}

// Word returns the word at index i.
func (v *Vocabulary) Word(i uint32) (string, bool) {
	if int(i) >= len(v.entries) {
		return "", false
	}

	return v.entries[i].Word, true
}
