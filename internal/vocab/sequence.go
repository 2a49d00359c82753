package vocab

// Sequences slides a window of length+1 over tokens and maps each token to its
// index. The first length indices are the model input and the last one is the
// next-word target. Unknown tokens map through Lookup.
func Sequences(tokens []string, v *Vocabulary, length int) [][]uint32 {
	if length <= 0 || len(tokens) <= length {
		return nil
	}

	ids := make([]uint32, len(tokens))
	for i, tok := range tokens {
		ids[i] = v.Lookup(tok)
	}

	out := make([][]uint32, 0, len(ids)-length)
	for i := 0; i+length < len(ids); i++ {
		out = append(out, ids[i:i+length+1])
	}

	return out
}
