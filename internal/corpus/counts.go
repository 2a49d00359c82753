package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/go-lmassets/internal/vocab"
)

// ErrMalformedLine is returned for a count line that cannot be used.
// Readers skip such lines and count them in Stats.Skipped.
var ErrMalformedLine = errors.New("corpus: malformed count line")

const maxLineBytes = 1 << 20

// Stats summarize one pass over a count file.
type Stats struct {
	Lines   int
	Skipped int
}

// Bigram is a raw word pair count.
type Bigram struct {
	Left  string
	Right string
	Count uint64
}

func splitCountLine(line string) (string, uint64, error) {
	parts := strings.Split(strings.TrimSpace(line), "\t")
	if len(parts) < 2 {
		return "", 0, fmt.Errorf("%w: want <key>\\t<count>, got %q", ErrMalformedLine, line)
	}

	count, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: count %q: %v", ErrMalformedLine, parts[1], err)
	}

	return parts[0], count, nil
}

// ParseUnigramLine parses "word<TAB>count". The word is lower-cased and must
// be letters only with a rune length in [1, maxWordLen].
func ParseUnigramLine(line string, maxWordLen int) (string, uint64, error) {
	key, count, err := splitCountLine(line)
	if err != nil {
		return "", 0, err
	}

	word := lower(key)

	n := utf8.RuneCountInString(word)
	if n < 1 || n > maxWordLen {
		return "", 0, fmt.Errorf("%w: word %q length %d outside [1, %d]", ErrMalformedLine, word, n, maxWordLen)
	}

	for _, r := range word {
		if !unicode.IsLetter(r) {
			return "", 0, fmt.Errorf("%w: word %q is not alphabetic", ErrMalformedLine, word)
		}
	}

	return word, count, nil
}

// ParseBigramLine parses "left right<TAB>count".
func ParseBigramLine(line string) (Bigram, error) {
	key, count, err := splitCountLine(line)
	if err != nil {
		return Bigram{}, err
	}

	words := strings.Fields(lower(key))
	if len(words) != 2 {
		return Bigram{}, fmt.Errorf("%w: bigram %q needs two words", ErrMalformedLine, key)
	}

	return Bigram{Left: words[0], Right: words[1], Count: count}, nil
}

func scanLines(r io.Reader, fn func(line string) error) (Stats, error) {
	var st Stats

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		st.Lines++

		if err := fn(line); err != nil {
			if !errors.Is(err, ErrMalformedLine) {
				return st, err
			}

			st.Skipped++
		}
	}

	if err := sc.Err(); err != nil {
		return st, fmt.Errorf("corpus: scan: %w", err)
	}

	return st, nil
}

// ReadUnigrams loads a unigram count file. A repeated word keeps its first
// position and takes the later count.
func ReadUnigrams(r io.Reader, maxWordLen int) (*vocab.Counter, Stats, error) {
	counts := vocab.NewCounter()

	st, err := scanLines(r, func(line string) error {
		word, n, err := ParseUnigramLine(line, maxWordLen)
		if err != nil {
			return err
		}

		counts.Set(word, n)

		return nil
	})

	return counts, st, err
}

// ReadBigrams loads a bigram count file with the same duplicate rule as
// ReadUnigrams.
func ReadBigrams(r io.Reader) ([]Bigram, Stats, error) {
	var out []Bigram

	seen := make(map[[2]string]int)

	st, err := scanLines(r, func(line string) error {
		b, err := ParseBigramLine(line)
		if err != nil {
			return err
		}

		key := [2]string{b.Left, b.Right}
		if i, ok := seen[key]; ok {
			out[i].Count = b.Count
			return nil
		}

		seen[key] = len(out)
		out = append(out, b)

		return nil
	})

	return out, st, err
}
