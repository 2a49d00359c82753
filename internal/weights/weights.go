// Package weights encodes the single-layer recurrent next-word model consumed
// by the on-device engine.
//
// File layout (all little-endian):
//
//	header   magic "LSTM", version, vocab_size, embedding_dim, hidden_size, sequence_length (u32 each)
//	embedding       [vocab_size, embedding_dim]
//	gate kernel     [4*hidden_size, embedding_dim]
//	gate recurrent  [4*hidden_size, hidden_size]
//	gate bias       [4*hidden_size]
//	proj kernel     [vocab_size, hidden_size]
//	proj bias       [vocab_size]
//
// Tensors are float32, row-major. The trainer stores the three kernels
// transposed relative to this layout; Encode performs the transpose.
//
// The gate axis packs four blocks of hidden_size rows in GateOrder. The engine
// slices gates at exactly these offsets, so the order is part of the format.
package weights

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/go-lmassets/internal/format"
	"github.com/example/go-lmassets/internal/tensor"
)

// Gate names one block of the packed gate axis.
type Gate int

const (
	GateInput Gate = iota
	GateForget
	GateCell
	GateOutput
)

// GateOrder is the block order along the 4*hidden_size axis.
var GateOrder = [4]Gate{GateInput, GateForget, GateCell, GateOutput}

func (g Gate) String() string {
	switch g {
	case GateInput:
		return "input"
	case GateForget:
		return "forget"
	case GateCell:
		return "cell"
	case GateOutput:
		return "output"
	default:
		return fmt.Sprintf("gate(%d)", int(g))
	}
}

// Tensor names used in errors and reports.
const (
	NameEmbedding     = "embedding"
	NameGateKernel    = "gate_kernel"
	NameGateRecurrent = "gate_recurrent"
	NameGateBias      = "gate_bias"
	NameProjKernel    = "projection_kernel"
	NameProjBias      = "projection_bias"
)

// SourceNames locates the six tensors in a trainer checkpoint.
type SourceNames struct {
	Embedding     string
	GateKernel    string
	GateRecurrent string
	GateBias      string
	ProjKernel    string
	ProjBias      string
}

// KerasNames are the variable paths of an Embedding -> LSTM -> Dense stack
// saved with default layer names.
var KerasNames = SourceNames{
	Embedding:     "embedding/embeddings",
	GateKernel:    "lstm/lstm_cell/kernel",
	GateRecurrent: "lstm/lstm_cell/recurrent_kernel",
	GateBias:      "lstm/lstm_cell/bias",
	ProjKernel:    "dense/kernel",
	ProjBias:      "dense/bias",
}

// Pairs returns (tensor name, source name) in file order.
func (n SourceNames) Pairs() [6][2]string {
	return [6][2]string{
		{NameEmbedding, n.Embedding},
		{NameGateKernel, n.GateKernel},
		{NameGateRecurrent, n.GateRecurrent},
		{NameGateBias, n.GateBias},
		{NameProjKernel, n.ProjKernel},
		{NameProjBias, n.ProjBias},
	}
}

// Assign stores t in the slot of s named by a Name* constant.
func (s *Set) Assign(name string, t *tensor.Tensor) error {
	switch name {
	case NameEmbedding:
		s.Embedding = t
	case NameGateKernel:
		s.GateKernel = t
	case NameGateRecurrent:
		s.GateRecurrent = t
	case NameGateBias:
		s.GateBias = t
	case NameProjKernel:
		s.ProjKernel = t
	case NameProjBias:
		s.ProjBias = t
	default:
		return fmt.Errorf("weights: unknown tensor %q", name)
	}

	return nil
}

// Tensors returns the tensors of s keyed by Name* constant.
func (s *Set) Tensors() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		NameEmbedding:     s.Embedding,
		NameGateKernel:    s.GateKernel,
		NameGateRecurrent: s.GateRecurrent,
		NameGateBias:      s.GateBias,
		NameProjKernel:    s.ProjKernel,
		NameProjBias:      s.ProjBias,
	}
}

const headerFields = 4

// ErrShapeMismatch is the sentinel wrapped by ShapeMismatchError.
var ErrShapeMismatch = errors.New("weights: shape mismatch")

// ShapeMismatchError names the offending tensor and both shapes.
type ShapeMismatchError struct {
	Tensor string
	Want   []int64
	Got    []int64
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("weights: tensor %s shape %v, expected %v", e.Tensor, e.Got, e.Want)
}

func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}

// Dims are the header fields of a weight file.
type Dims struct {
	VocabSize      int
	EmbeddingDim   int
	HiddenSize     int
	SequenceLength int
}

// Validate rejects dimensions the header cannot carry.
func (d Dims) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"vocab_size", d.VocabSize},
		{"embedding_dim", d.EmbeddingDim},
		{"hidden_size", d.HiddenSize},
		{"sequence_length", d.SequenceLength},
	} {
		if f.v <= 0 || uint64(f.v) > math.MaxUint32 {
			return fmt.Errorf("weights: %s %d out of range", f.name, f.v)
		}
	}

	if uint64(d.HiddenSize)*4 > math.MaxUint32 {
		return fmt.Errorf("weights: hidden_size %d overflows the gate axis", d.HiddenSize)
	}

	return nil
}

// Gates returns 4*hidden_size.
func (d Dims) Gates() int {
	return 4 * d.HiddenSize
}

// ExpectedSize is the closed-form file size implied by the header fields.
func ExpectedSize(d Dims) int64 {
	v, e, h := int64(d.VocabSize), int64(d.EmbeddingDim), int64(d.HiddenSize)

	return int64(format.HeaderSize(headerFields)) +
		v*e*4 +
		4*h*e*4 +
		4*h*h*4 +
		4*h*4 +
		v*h*4 +
		v*4
}

// Set holds the six tensors in trainer orientation.
type Set struct {
	Embedding     *tensor.Tensor // [vocab, embed]
	GateKernel    *tensor.Tensor // [embed, 4*hidden]
	GateRecurrent *tensor.Tensor // [hidden, 4*hidden]
	GateBias      *tensor.Tensor // [4*hidden]
	ProjKernel    *tensor.Tensor // [hidden, vocab]
	ProjBias      *tensor.Tensor // [vocab]
}

// Model holds the six tensors in engine orientation, as stored on disk.
type Model struct {
	Embedding     *tensor.Tensor // [vocab, embed]
	GateKernel    *tensor.Tensor // [4*hidden, embed]
	GateRecurrent *tensor.Tensor // [4*hidden, hidden]
	GateBias      *tensor.Tensor // [4*hidden]
	ProjKernel    *tensor.Tensor // [vocab, hidden]
	ProjBias      *tensor.Tensor // [vocab]
}

type shapeCheck struct {
	name string
	t    *tensor.Tensor
	want []int64
}

func trainerShapes(d Dims, s *Set) []shapeCheck {
	v, e, h, g := int64(d.VocabSize), int64(d.EmbeddingDim), int64(d.HiddenSize), int64(d.Gates())

	return []shapeCheck{
		{NameEmbedding, s.Embedding, []int64{v, e}},
		{NameGateKernel, s.GateKernel, []int64{e, g}},
		{NameGateRecurrent, s.GateRecurrent, []int64{h, g}},
		{NameGateBias, s.GateBias, []int64{g}},
		{NameProjKernel, s.ProjKernel, []int64{h, v}},
		{NameProjBias, s.ProjBias, []int64{v}},
	}
}

// Check validates every tensor of s against d and returns the first
// mismatch as a *ShapeMismatchError.
func Check(d Dims, s *Set) error {
	if err := d.Validate(); err != nil {
		return err
	}

	if s == nil {
		return errors.New("weights: nil tensor set")
	}

	for _, c := range trainerShapes(d, s) {
		if !c.t.HasShape(c.want...) {
			return &ShapeMismatchError{Tensor: c.name, Want: c.want, Got: c.t.Shape()}
		}
	}

	return nil
}

// Encode validates s, transposes the kernels into engine orientation and
// returns the complete file. Nothing is returned on a shape mismatch.
func Encode(d Dims, s *Set) ([]byte, error) {
	if err := Check(d, s); err != nil {
		return nil, err
	}

	m, err := toEngine(s)
	if err != nil {
		return nil, err
	}

	size := ExpectedSize(d)
	if size > math.MaxInt {
		return nil, fmt.Errorf("weights: %d bytes exceed addressable memory", size)
	}

	enc := format.NewEncoder(int(size))
	enc.Header(format.LSTM,
		uint32(d.VocabSize),
		uint32(d.EmbeddingDim),
		uint32(d.HiddenSize),
		uint32(d.SequenceLength),
	)

	for _, t := range m.ordered() {
		enc.Float32s(t.RawData())
	}

	return enc.Data(), nil
}

func toEngine(s *Set) (*Model, error) {
	gk, err := s.GateKernel.Transpose(0, 1)
	if err != nil {
		return nil, fmt.Errorf("weights: transpose %s: %w", NameGateKernel, err)
	}

	gr, err := s.GateRecurrent.Transpose(0, 1)
	if err != nil {
		return nil, fmt.Errorf("weights: transpose %s: %w", NameGateRecurrent, err)
	}

	pk, err := s.ProjKernel.Transpose(0, 1)
	if err != nil {
		return nil, fmt.Errorf("weights: transpose %s: %w", NameProjKernel, err)
	}

	return &Model{
		Embedding:     s.Embedding,
		GateKernel:    gk,
		GateRecurrent: gr,
		GateBias:      s.GateBias,
		ProjKernel:    pk,
		ProjBias:      s.ProjBias,
	}, nil
}

func (m *Model) ordered() []*tensor.Tensor {
	return []*tensor.Tensor{m.Embedding, m.GateKernel, m.GateRecurrent, m.GateBias, m.ProjKernel, m.ProjBias}
}

// Gate returns the rows of the engine-orientation gate kernel that belong to g.
func (m *Model) Gate(g Gate, hidden int) ([]float32, error) {
	if g < GateInput || g > GateOutput {
		return nil, fmt.Errorf("weights: unknown gate %d", int(g))
	}

	shape := m.GateKernel.Shape()
	if len(shape) != 2 || shape[0] != int64(4*hidden) {
		return nil, fmt.Errorf("weights: gate kernel shape %v does not pack 4x%d gates", shape, hidden)
	}

	cols := int(shape[1])
	data := m.GateKernel.RawData()

	return data[int(g)*hidden*cols : (int(g)+1)*hidden*cols], nil
}

// ReadDims parses only the header of a weight file.
func ReadDims(data []byte) (Dims, error) {
	fields, err := format.NewDecoder(data).Header(format.LSTM, headerFields)
	if err != nil {
		return Dims{}, fmt.Errorf("weights: header: %w", err)
	}

	return Dims{
		VocabSize:      int(fields[0]),
		EmbeddingDim:   int(fields[1]),
		HiddenSize:     int(fields[2]),
		SequenceLength: int(fields[3]),
	}, nil
}

// Decode parses a complete weight file into engine orientation.
func Decode(data []byte) (Dims, *Model, error) {
	d, err := ReadDims(data)
	if err != nil {
		return Dims{}, nil, err
	}

	if err := d.Validate(); err != nil {
		return Dims{}, nil, err
	}

	if want := ExpectedSize(d); int64(len(data)) < want {
		return Dims{}, nil, fmt.Errorf("weights: %w: header implies %d bytes, file has %d", format.ErrTruncated, want, len(data))
	}

	dec := format.NewDecoder(data[format.HeaderSize(headerFields):])
	v, e, h, g := int64(d.VocabSize), int64(d.EmbeddingDim), int64(d.HiddenSize), int64(d.Gates())

	shapes := [][]int64{{v, e}, {g, e}, {g, h}, {g}, {v, h}, {v}}
	out := make([]*tensor.Tensor, len(shapes))

	for i, shape := range shapes {
		n := int64(1)
		for _, dim := range shape {
			n *= dim
		}

		vals, err := dec.Float32s(int(n))
		if err != nil {
			return Dims{}, nil, fmt.Errorf("weights: tensor %d: %w", i, err)
		}

		out[i], err = tensor.Wrap(vals, shape)
		if err != nil {
			return Dims{}, nil, err
		}
	}

	return d, &Model{
		Embedding:     out[0],
		GateKernel:    out[1],
		GateRecurrent: out[2],
		GateBias:      out[3],
		ProjKernel:    out[4],
		ProjBias:      out[5],
	}, nil
}
