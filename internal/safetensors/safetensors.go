// Package safetensors reads the tensor containers the training stage exports
// and writes them for fixtures and round-trip checks.
//
// Layout: 8-byte little-endian header length, JSON header mapping tensor name
// to dtype/shape/data_offsets, then raw tensor bytes. F32, F16 and BF16
// payloads are accepted and widened to float32.
package safetensors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-lmassets/internal/tensor"
)

const (
	dtypeF32  = "F32"
	dtypeF16  = "F16"
	dtypeBF16 = "BF16"

	metadataKey = "__metadata__"
)

// ErrNotFound is returned when a named tensor is absent.
var ErrNotFound = errors.New("safetensors: tensor not found")

// Tensor is one named float32 tensor.
type Tensor struct {
	Name  string
	Shape []int64
	Data  []float32
}

// Dense converts t into a row-major tensor without copying its data.
func (t *Tensor) Dense() (*tensor.Tensor, error) {
	out, err := tensor.Wrap(t.Data, t.Shape)
	if err != nil {
		return nil, fmt.Errorf("safetensors: tensor %q: %w", t.Name, err)
	}

	return out, nil
}

// FromDense names a dense tensor for writing.
func FromDense(name string, t *tensor.Tensor) Tensor {
	return Tensor{Name: name, Shape: t.Shape(), Data: t.Data()}
}

type headerEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

// KeyMapper renames a stored tensor or drops it (keep=false).
type KeyMapper func(name string) (mapped string, keep bool)

// StripPrefix returns a mapper that removes prefix from every name and
// keeps names that lack it unchanged. An empty prefix keeps every name.
func StripPrefix(prefix string) KeyMapper {
	return func(name string) (string, bool) {
		if prefix == "" {
			return name, true
		}

		if after, ok := strings.CutPrefix(name, prefix); ok {
			return after, true
		}

		return name, true
	}
}

func summarizeNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}

	const maxNames = 8
	if len(names) <= maxNames {
		return strings.Join(names, ", ")
	}

	return strings.Join(names[:maxNames], ", ") + ", ..."
}
