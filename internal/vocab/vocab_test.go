package vocab

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterOf(tokens ...string) *Counter {
	c := NewCounter()
	c.AddAll(tokens)

	return c
}

func TestBuild_TruncationTieBreakByInputOrder(t *testing.T) {
	c := NewCounter()
	c.Set("a", 10)
	c.Set("b", 10)
	c.Set("c", 5)

	dict, err := Build(c, Options{MaxSize: 2, Variant: Dictionary})
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Word: "a", Frequency: 10, Index: 0},
		{Word: "b", Frequency: 10, Index: 1},
	}, dict.Entries())

	seq, err := Build(c, Options{MaxSize: 4, Variant: Sequence})
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Word: PadToken, Index: 0},
		{Word: UnkToken, Index: 1},
		{Word: "a", Frequency: 10, Index: 2},
		{Word: "b", Frequency: 10, Index: 3},
	}, seq.Entries())
}

func TestBuild_TieOrderFollowsFirstSeenNotAlphabet(t *testing.T) {
	c := counterOf("zeta", "alpha", "zeta", "alpha", "mid")

	v, err := Build(c, Options{MaxSize: 10})
	require.NoError(t, err)

	words := make([]string, 0, v.Len())
	for _, e := range v.Entries() {
		words = append(words, e.Word)
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, words)
}

func TestBuild_MinFrequencyDropsSilently(t *testing.T) {
	c := counterOf("x", "x", "x", "y", "z", "z")

	v, err := Build(c, Options{MaxSize: 10, MinFrequency: 2})
	require.NoError(t, err)

	_, ok := v.Index("y")
	assert.False(t, ok)
	assert.Equal(t, 2, v.Len())
}

func TestBuild_IndexDensity(t *testing.T) {
	c := NewCounter()
	for i := 0; i < 500; i++ {
		for j := 0; j < i%7+1; j++ {
			c.Add(strings.Repeat("w", i%13+1) + string(rune('a'+i%26)) + string(rune('a'+i/26)))
		}
	}

	for _, variant := range []Variant{Dictionary, Sequence} {
		v, err := Build(c, Options{MaxSize: 300, Variant: variant})
		require.NoError(t, err)

		seen := make(map[uint32]bool, v.Len())
		for i, e := range v.Entries() {
			assert.Equal(t, uint32(i), e.Index, variant.String())
			assert.False(t, seen[e.Index])
			seen[e.Index] = true

			got, ok := v.Index(e.Word)
			require.True(t, ok)
			assert.Equal(t, e.Index, got)
		}

		assert.Len(t, seen, v.Len())
		assert.LessOrEqual(t, v.Len(), 300)
	}
}

func TestBuild_SequenceSkipsSentinelTokensInCorpus(t *testing.T) {
	v, err := Build(counterOf("<UNK>", "<UNK>", "hi"), Options{MaxSize: 10, Variant: Sequence})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())

	w, ok := v.Word(2)
	require.True(t, ok)
	assert.Equal(t, "hi", w)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, Options{MaxSize: 1})
	require.Error(t, err)

	_, err = Build(NewCounter(), Options{MaxSize: 1, Variant: Sequence})
	require.Error(t, err)
}

func TestCounter_SetKeepsFirstPosition(t *testing.T) {
	c := NewCounter()
	c.Set("a", 1)
	c.Set("b", 5)
	c.Set("a", 5)

	v, err := Build(c, Options{MaxSize: 10})
	require.NoError(t, err)

	first, _ := v.Word(0)
	assert.Equal(t, "a", first)
	assert.Equal(t, uint64(5), c.Count("a"))
	assert.Equal(t, 2, c.Len())
}

func TestLookup_Fallbacks(t *testing.T) {
	dict, err := Build(counterOf("the", "cat"), Options{MaxSize: 10})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), dict.Lookup("dog"))

	seq, err := Build(counterOf("the", "cat"), Options{MaxSize: 10, Variant: Sequence})
	require.NoError(t, err)
	assert.Equal(t, UnkIndex, seq.Lookup("dog"))
	assert.Len(t, seq.Words(), 2)

	_, ok := seq.Word(99)
	assert.False(t, ok)
}

func TestSequences(t *testing.T) {
	tokens := []string{"a", "b", "a", "c", "zzz"}

	v, err := Build(counterOf(tokens...), Options{MaxSize: 10, MinFrequency: 1, Variant: Sequence})
	require.NoError(t, err)

	a, _ := v.Index("a")
	b, _ := v.Index("b")
	c, _ := v.Index("c")
	z, _ := v.Index("zzz")

	got := Sequences(tokens, v, 3)
	assert.Equal(t, [][]uint32{{a, b, a, c}, {b, a, c, z}}, got)

	assert.Nil(t, Sequences(tokens, v, 5))
	assert.Nil(t, Sequences(tokens, v, 0))

	got = Sequences([]string{"a", "unseen", "b"}, v, 2)
	assert.Equal(t, [][]uint32{{a, UnkIndex, b}}, got)
}

func TestIndexJSON_RoundTripPreservesOrder(t *testing.T) {
	v, err := Build(counterOf("b", "b", "a", "<tag>"), Options{MaxSize: 10, Variant: Sequence})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteIndexJSON(&buf, v))
	assert.Contains(t, buf.String(), `"<PAD>": 0`)

	words, err := ReadIndexJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{PadToken, UnkToken, "b", "a", "<tag>"}, words)

	back, err := FromWords(Sequence, words)
	require.NoError(t, err)
	assert.Equal(t, v.Len(), back.Len())
}

func TestReverseAndFreqJSON(t *testing.T) {
	v, err := Build(counterOf("b", "b", "a"), Options{MaxSize: 10, Variant: Sequence})
	require.NoError(t, err)

	var rev bytes.Buffer
	require.NoError(t, WriteReverseJSON(&rev, v))
	assert.JSONEq(t, `{"0":"<PAD>","1":"<UNK>","2":"b","3":"a"}`, rev.String())

	var freq bytes.Buffer
	require.NoError(t, WriteFreqJSON(&freq, v))
	assert.JSONEq(t, `{"b":2,"a":1}`, freq.String())

	var empty bytes.Buffer
	require.NoError(t, writeOrdered(&empty, nil, nil))
	assert.Equal(t, "{}\n", empty.String())
}

func TestReadIndexJSON_RejectsGapsAndShapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"gap", `{"a":0,"b":2}`},
		{"out of order", `{"a":1,"b":0}`},
		{"array", `[1,2]`},
		{"negative", `{"a":-1}`},
		{"not a number", `{"a":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadIndexJSON(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestFromWords_Validation(t *testing.T) {
	_, err := FromWords(Dictionary, []string{"a", "a"})
	require.Error(t, err)

	_, err = FromWords(Sequence, []string{"a", "b"})
	require.Error(t, err)

	v, err := FromWords(Dictionary, []string{"x", "y"})
	require.NoError(t, err)

	idx, ok := v.Index("y")
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)
	assert.Equal(t, Dictionary, v.Variant())
}
