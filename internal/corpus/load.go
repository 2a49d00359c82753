package corpus

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	csvColumns  = []string{"text", "content", "message", "body", "comment"}
	jsonColumns = []string{"text", "content", "body", "message"}
)

// LoadText reads training text from a file or a directory tree. Supported
// extensions are .txt, .csv, .json and .jsonl; other files are ignored.
// Files are read in lexical path order and joined with newlines.
// textColumn picks the CSV column or JSON field; when empty or absent the
// usual text field names are tried.
func LoadText(path, textColumn string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("corpus: %w", err)
	}

	files := []string{path}

	if info.IsDir() {
		files = files[:0]

		err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() {
				files = append(files, p)
			}

			return nil
		})
		if err != nil {
			return "", fmt.Errorf("corpus: walk %s: %w", path, err)
		}

		slices.Sort(files)
	}

	parts := make([]string, 0, len(files))

	for _, f := range files {
		text, ok, err := loadFile(f, textColumn)
		if err != nil {
			return "", err
		}

		if ok {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}

func loadFile(path, textColumn string) (string, bool, error) {
	var load func(io.Reader, string) (string, error)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		load = loadPlain
	case ".csv":
		load = loadCSV
	case ".json", ".jsonl":
		load = loadJSONLines
	default:
		return "", false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", false, fmt.Errorf("corpus: %w", err)
	}
	defer f.Close()

	text, err := load(f, textColumn)
	if err != nil {
		return "", false, fmt.Errorf("corpus: %s: %w", path, err)
	}

	return text, true, nil
}

func loadPlain(r io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	return strings.ToValidUTF8(string(data), ""), nil
}

func pickColumn(textColumn string, fallback []string, has func(string) bool) (string, bool) {
	if textColumn != "" && has(textColumn) {
		return textColumn, true
	}

	for _, c := range fallback {
		if has(c) {
			return c, true
		}
	}

	return "", false
}

func loadCSV(r io.Reader, textColumn string) (string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}

	name, ok := pickColumn(textColumn, csvColumns, func(c string) bool {
		_, ok := col[c]
		return ok
	})
	if !ok {
		return "", nil
	}

	var texts []string

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", err
		}

		if i := col[name]; i < len(rec) {
			texts = append(texts, rec[i])
		}
	}

	return strings.Join(texts, "\n"), nil
}

func loadJSONLines(r io.Reader, textColumn string) (string, error) {
	var texts []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*maxLineBytes)

	for sc.Scan() {
		var v any
		if err := json.Unmarshal(sc.Bytes(), &v); err != nil {
			continue
		}

		switch val := v.(type) {
		case string:
			texts = append(texts, val)
		case map[string]any:
			field, ok := pickColumn(textColumn, jsonColumns, func(c string) bool {
				_, ok := val[c]
				return ok
			})
			if !ok {
				continue
			}

			if s, ok := val[field].(string); ok {
				texts = append(texts, s)
			}
		}
	}

	if err := sc.Err(); err != nil {
		return "", err
	}

	return strings.Join(texts, "\n"), nil
}
