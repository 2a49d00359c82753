package vocab

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// WriteIndexJSON writes {"word": index, ...} with keys in index order. The
// training stage reads this table, so its order must match the binary
// vocabulary built from the same run.
func WriteIndexJSON(w io.Writer, v *Vocabulary) error {
	return writeOrdered(w, v.entries, func(e Entry) (string, any) {
		return e.Word, e.Index
	})
}

// WriteReverseJSON writes the optional {"index": "word", ...} side table.
func WriteReverseJSON(w io.Writer, v *Vocabulary) error {
	return writeOrdered(w, v.entries, func(e Entry) (string, any) {
		return strconv.FormatUint(uint64(e.Index), 10), e.Word
	})
}

// WriteFreqJSON writes raw counts of the non-sentinel words in index order.
func WriteFreqJSON(w io.Writer, v *Vocabulary) error {
	return writeOrdered(w, v.Words(), func(e Entry) (string, any) {
		return e.Word, e.Frequency
	})
}

func writeOrdered(w io.Writer, entries []Entry, kv func(Entry) (string, any)) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("{"); err != nil {
		return err
	}

	for i, e := range entries {
		key, val := kv(e)

		kb, err := marshal(key)
		if err != nil {
			return fmt.Errorf("vocab: encode key %q: %w", key, err)
		}

		vb, err := marshal(val)
		if err != nil {
			return fmt.Errorf("vocab: encode value for %q: %w", key, err)
		}

		sep := ",\n  "
		if i == 0 {
			sep = "\n  "
		}

		_, _ = bw.WriteString(sep)
		_, _ = bw.Write(kb)
		_, _ = bw.WriteString(": ")
		_, _ = bw.Write(vb)
	}

	if len(entries) > 0 {
		_, _ = bw.WriteString("\n")
	}

	_, _ = bw.WriteString("}\n")

	return bw.Flush()
}

// marshal encodes v without HTML escaping so sentinels stay readable as "<PAD>".
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ReadIndexJSON decodes a {"word": index} table, keeping document order, and
// checks that the indices are exactly 0..N-1 in that order.
func ReadIndexJSON(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("vocab: read index table: %w", err)
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("vocab: index table must be a JSON object")
	}

	var words []string

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("vocab: read index key: %w", err)
		}

		word, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("vocab: unexpected key token %v", keyTok)
		}

		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, fmt.Errorf("vocab: index for %q: %w", word, err)
		}

		idx, err := strconv.ParseUint(n.String(), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("vocab: index for %q: %w", word, err)
		}

		if idx != uint64(len(words)) {
			return nil, fmt.Errorf("vocab: word %q has index %d, want %d (indices must be dense and ordered)", word, idx, len(words))
		}

		words = append(words, word)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("vocab: read index table end: %w", err)
	}

	return words, nil
}
