// Package ngram encodes the dictionary vocabulary and the bigram table
// consumed by the on-device n-gram engine.
//
// Vocabulary file: header (magic, version, count) then per word
// (len u16, utf8 bytes, quantized frequency u16).
// Bigram file: header (magic, version, count) then per pair
// (left u16, right u16, quantized frequency u16).
//
// Bigram indices are 16 bits wide. This is a limitation of format version 1:
// vocabularies above 65536 words cannot be referenced and are rejected with
// ErrIndexOverflow instead of being narrowed.
package ngram

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/go-lmassets/internal/format"
	"github.com/example/go-lmassets/internal/quant"
	"github.com/example/go-lmassets/internal/vocab"
)

var (
	// ErrVocabularyOverflow is returned when a word does not fit the u16 length prefix.
	ErrVocabularyOverflow = errors.New("ngram: word too long for 16-bit length prefix")
	// ErrIndexOverflow is returned when a bigram index does not fit 16 bits.
	ErrIndexOverflow = errors.New("ngram: bigram index exceeds 16-bit field")
	// ErrUnresolvedIndex marks a bigram candidate whose word is not in the vocabulary.
	ErrUnresolvedIndex = errors.New("ngram: unresolved bigram word")
)

const (
	// MaxWordBytes is the longest encodable word.
	MaxWordBytes = math.MaxUint16
	// MaxIndex is the largest index a bigram record can carry.
	MaxIndex = math.MaxUint16

	headerFields = 1
	bigramBytes  = 6
)

// VocabRecord is one decoded vocabulary record. Its index is its position.
type VocabRecord struct {
	Word      string
	Frequency uint16
}

// BigramRecord is one decoded bigram record.
type BigramRecord struct {
	Left      uint16
	Right     uint16
	Frequency uint16
}

// Bigram is a resolved pair ready for encoding.
type Bigram struct {
	Left      uint32
	Right     uint32
	Frequency uint64
}

// VocabSize returns the exact byte size of a vocabulary file holding entries.
func VocabSize(entries []vocab.Entry) int64 {
	size := int64(format.HeaderSize(headerFields))
	for _, e := range entries {
		size += 2 + int64(len(e.Word)) + 2
	}

	return size
}

// BigramSize returns the exact byte size of a bigram file with n records.
func BigramSize(n int) int64 {
	return int64(format.HeaderSize(headerFields)) + int64(n)*bigramBytes
}

// EncodeVocab serializes entries in the given order.
func EncodeVocab(spec format.Spec, entries []vocab.Entry) ([]byte, error) {
	if uint64(len(entries)) > math.MaxUint32 {
		return nil, fmt.Errorf("ngram: %d entries overflow the count field", len(entries))
	}

	enc := format.NewEncoder(int(VocabSize(entries)))
	enc.Header(spec, uint32(len(entries)))

	for i, e := range entries {
		if len(e.Word) > MaxWordBytes {
			return nil, fmt.Errorf("%w: entry %d is %d bytes", ErrVocabularyOverflow, i, len(e.Word))
		}

		enc.Uint16(uint16(len(e.Word)))
		enc.Bytes([]byte(e.Word))
		enc.Uint16(quant.Frequency(e.Frequency))
	}

	return enc.Data(), nil
}

// DecodeVocab parses a vocabulary file.
func DecodeVocab(spec format.Spec, data []byte) ([]VocabRecord, error) {
	dec := format.NewDecoder(data)

	fields, err := dec.Header(spec, headerFields)
	if err != nil {
		return nil, fmt.Errorf("ngram: vocabulary header: %w", err)
	}

	count := int(fields[0])
	// Every record needs at least 4 bytes; refuse absurd counts before allocating.
	if count > dec.Remaining()/4 {
		return nil, fmt.Errorf("ngram: vocabulary: %w: header promises %d records, %d bytes remain",
			format.ErrTruncated, count, dec.Remaining())
	}

	out := make([]VocabRecord, 0, count)

	for i := 0; i < count; i++ {
		n, err := dec.Uint16()
		if err != nil {
			return nil, fmt.Errorf("ngram: vocabulary record %d: %w", i, err)
		}

		word, err := dec.Bytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("ngram: vocabulary record %d: %w", i, err)
		}

		freq, err := dec.Uint16()
		if err != nil {
			return nil, fmt.Errorf("ngram: vocabulary record %d: %w", i, err)
		}

		out = append(out, VocabRecord{Word: string(word), Frequency: freq})
	}

	return out, nil
}

// EncodeBigrams serializes resolved bigrams in the given order.
func EncodeBigrams(spec format.Spec, bigrams []Bigram) ([]byte, error) {
	if uint64(len(bigrams)) > math.MaxUint32 {
		return nil, fmt.Errorf("ngram: %d bigrams overflow the count field", len(bigrams))
	}

	enc := format.NewEncoder(int(BigramSize(len(bigrams))))
	enc.Header(spec, uint32(len(bigrams)))

	for i, b := range bigrams {
		if b.Left > MaxIndex || b.Right > MaxIndex {
			return nil, fmt.Errorf("%w: bigram %d is (%d, %d)", ErrIndexOverflow, i, b.Left, b.Right)
		}

		enc.Uint16(uint16(b.Left))
		enc.Uint16(uint16(b.Right))
		enc.Uint16(quant.Frequency(b.Frequency))
	}

	return enc.Data(), nil
}

// DecodeBigrams parses a bigram file.
func DecodeBigrams(spec format.Spec, data []byte) ([]BigramRecord, error) {
	dec := format.NewDecoder(data)

	fields, err := dec.Header(spec, headerFields)
	if err != nil {
		return nil, fmt.Errorf("ngram: bigram header: %w", err)
	}

	count := int(fields[0])
	if count > dec.Remaining()/bigramBytes {
		return nil, fmt.Errorf("ngram: bigrams: %w: header promises %d records, %d bytes remain",
			format.ErrTruncated, count, dec.Remaining())
	}

	out := make([]BigramRecord, count)
	for i := range out {
		// Bounds were checked above.
		out[i].Left, _ = dec.Uint16()
		out[i].Right, _ = dec.Uint16()
		out[i].Frequency, _ = dec.Uint16()
	}

	return out, nil
}
