package ngram

import (
	"fmt"
	"slices"

	"github.com/example/go-lmassets/internal/vocab"
)

// Candidate is a raw bigram count read from the corpus statistics.
type Candidate struct {
	Left      string
	Right     string
	Frequency uint64
}

// Selection is the outcome of SelectBigrams.
type Selection struct {
	Bigrams   []Bigram
	Dropped   int // candidates with a word outside the vocabulary
	Truncated int // resolvable candidates cut by the max count
}

// SelectBigrams keeps candidates whose words both resolve in v, sorts them by
// descending frequency (ties keep input order) and keeps at most limit of
// them. limit <= 0 means no limit.
func SelectBigrams(candidates []Candidate, v *vocab.Vocabulary, limit int) Selection {
	var sel Selection

	kept := make([]Bigram, 0, len(candidates))

	for _, c := range candidates {
		b, err := resolveStrict(c, v)
		if err != nil {
			sel.Dropped++
			continue
		}

		kept = append(kept, b)
	}

	slices.SortStableFunc(kept, func(a, b Bigram) int {
		switch {
		case a.Frequency > b.Frequency:
			return -1
		case a.Frequency < b.Frequency:
			return 1
		default:
			return 0
		}
	})

	if limit > 0 && len(kept) > limit {
		sel.Truncated = len(kept) - limit
		kept = kept[:limit]
	}

	sel.Bigrams = kept

	return sel
}

func resolveStrict(c Candidate, v *vocab.Vocabulary) (Bigram, error) {
	left, ok := v.Index(c.Left)
	if !ok {
		return Bigram{}, fmt.Errorf("%w: %q", ErrUnresolvedIndex, c.Left)
	}

	right, ok := v.Index(c.Right)
	if !ok {
		return Bigram{}, fmt.Errorf("%w: %q", ErrUnresolvedIndex, c.Right)
	}

	return Bigram{Left: left, Right: right, Frequency: c.Frequency}, nil
}

// Resolve maps word pairs to indices without filtering. A word with no index
// falls back to index 0, which is the defined behavior of the bigram format.
func Resolve(candidates []Candidate, v *vocab.Vocabulary) []Bigram {
	out := make([]Bigram, len(candidates))
	for i, c := range candidates {
		left, _ := v.Index(c.Left)
		right, _ := v.Index(c.Right)
		out[i] = Bigram{Left: left, Right: right, Frequency: c.Frequency}
	}

	return out
}
