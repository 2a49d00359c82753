package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/example/go-lmassets/internal/tensor"
)

// Options control how stored names are exposed.
type Options struct {
	KeyMapper KeyMapper
	// Strict fails on dropped tensors and on mapped-name collisions instead
	// of skipping them.
	Strict bool
}

// Store is a fully loaded container. Tensors are decoded on demand.
type Store struct {
	raw     []byte
	entries map[string]entry
	names   []string
}

type entry struct {
	original string
	dtype    string
	shape    []int64
	start    int
	end      int
}

// Open reads the container at path.
func Open(path string, opts Options) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: read %s: %w", path, err)
	}

	return OpenBytes(data, opts)
}

// OpenBytes indexes an in-memory container.
func OpenBytes(data []byte, opts Options) (*Store, error) {
	mapper := opts.KeyMapper
	if mapper == nil {
		mapper = StripPrefix("")
	}

	headerEnd, header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(header))
	for name := range header {
		if name != metadataKey {
			keys = append(keys, name)
		}
	}

	sort.Strings(keys)

	s := &Store{raw: data, entries: make(map[string]entry, len(keys))}

	for _, original := range keys {
		var he headerEntry
		if err := json.Unmarshal(header[original], &he); err != nil {
			return nil, fmt.Errorf("safetensors: decode header entry %q: %w", original, err)
		}

		e, err := locate(original, he, headerEnd, len(data))
		if err != nil {
			return nil, err
		}

		mapped, keep := mapper(original)
		mapped = strings.TrimSpace(mapped)

		switch {
		case !keep && opts.Strict:
			return nil, fmt.Errorf("safetensors: strict remap rejected tensor %q", original)
		case !keep:
			continue
		case mapped == "":
			return nil, fmt.Errorf("safetensors: remapped tensor name for %q is empty", original)
		}

		if _, exists := s.entries[mapped]; exists {
			if opts.Strict {
				return nil, fmt.Errorf("safetensors: strict remap collision for %q", mapped)
			}

			continue
		}

		s.entries[mapped] = e
		s.names = append(s.names, mapped)
	}

	if len(s.entries) == 0 {
		return nil, errors.New("safetensors: no tensors found")
	}

	sort.Strings(s.names)

	return s, nil
}

// locate validates one header entry and resolves its absolute byte range.
func locate(name string, he headerEntry, headerEnd, fileSize int) (entry, error) {
	dtype := strings.ToUpper(he.DType)

	elemBytes, err := dtypeBytes(dtype)
	if err != nil {
		return entry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	if he.Offsets[0] < 0 || he.Offsets[1] < he.Offsets[0] {
		return entry{}, fmt.Errorf("safetensors: tensor %q has invalid data offsets %v", name, he.Offsets)
	}

	start := headerEnd + he.Offsets[0]
	end := headerEnd + he.Offsets[1]

	if end > fileSize {
		return entry{}, fmt.Errorf("safetensors: tensor %q data [%d:%d] exceeds file size %d", name, start, end, fileSize)
	}

	count, err := elementCount(he.Shape)
	if err != nil {
		return entry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	if need := count * int64(elemBytes); int64(end-start) < need {
		return entry{}, fmt.Errorf("safetensors: tensor %q needs %d bytes but data has %d", name, need, end-start)
	}

	return entry{
		original: name,
		dtype:    dtype,
		shape:    slices.Clone(he.Shape),
		start:    start,
		end:      end,
	}, nil
}

func (s *Store) Names() []string {
	return slices.Clone(s.names)
}

func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Shape returns the stored shape of name without decoding its data.
func (s *Store) Shape(name string) ([]int64, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, s.notFound(name)
	}

	return slices.Clone(e.shape), nil
}

// Tensor decodes name to float32.
func (s *Store) Tensor(name string) (*Tensor, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, s.notFound(name)
	}

	data, err := decodeTensorData(s.raw[e.start:e.end], e.dtype, e.shape)
	if err != nil {
		return nil, fmt.Errorf("safetensors: tensor %q (stored as %q) decode: %w", name, e.original, err)
	}

	return &Tensor{Name: name, Shape: slices.Clone(e.shape), Data: data}, nil
}

// Dense decodes name into a row-major tensor.
func (s *Store) Dense(name string) (*tensor.Tensor, error) {
	t, err := s.Tensor(name)
	if err != nil {
		return nil, err
	}

	return t.Dense()
}

func (s *Store) notFound(name string) error {
	return fmt.Errorf("%w: %q (available: %s)", ErrNotFound, name, summarizeNames(s.names))
}

// Close drops the loaded bytes.
func (s *Store) Close() {
	s.raw = nil
	s.entries = nil
	s.names = nil
}

func decodeHeader(data []byte) (int, map[string]json.RawMessage, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("safetensors: file too short (%d bytes)", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return 0, nil, fmt.Errorf("safetensors: header length %d exceeds file size %d", headerLen, len(data))
	}

	headerEnd := 8 + int(headerLen)

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:headerEnd], &header); err != nil {
		return 0, nil, fmt.Errorf("safetensors: parse header: %w", err)
	}

	return headerEnd, header, nil
}

func elementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt64/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}

func dtypeBytes(dtype string) (int, error) {
	switch dtype {
	case dtypeF32:
		return 4, nil
	case dtypeF16, dtypeBF16:
		return 2, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
}
