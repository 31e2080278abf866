package ai

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// encodedInput is one tokenized sequence ready to feed the model, [CLS] and [SEP] included.
type encodedInput struct {
	ids     []int64
	mask    []int64
	typeIDs []int64
}

// hfTokenizer wraps a HuggingFace tokenizer.json loaded with sugarme/tokenizer.
type hfTokenizer struct {
	tk *tokenizer.Tokenizer
}

func loadTokenizer(path string) (*hfTokenizer, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &hfTokenizer{tk: tk}, nil
}

func (t *hfTokenizer) encode(text string, maxLen int) (encodedInput, error) {
	enc, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return encodedInput{}, fmt.Errorf("tokenize: %w", err)
	}
	return truncateEncoding(enc.Ids, enc.AttentionMask, enc.TypeIds, maxLen), nil
}

// truncateEncoding keeps at most maxLen tokens. When it cuts, the final token (the
// trailing [SEP]) is preserved. A missing attention mask is treated as all ones.
func truncateEncoding(ids, mask, typeIDs []int, maxLen int) encodedInput {
	positions := keptPositions(len(ids), maxLen)
	in := encodedInput{
		ids:     make([]int64, len(positions)),
		mask:    make([]int64, len(positions)),
		typeIDs: make([]int64, len(positions)),
	}
	for j, i := range positions {
		in.ids[j] = int64(ids[i])
		in.mask[j] = 1
		if i < len(mask) {
			in.mask[j] = int64(mask[i])
		}
		if i < len(typeIDs) {
			in.typeIDs[j] = int64(typeIDs[i])
		}
	}
	return in
}

func keptPositions(n, maxLen int) []int {
	if maxLen < 2 {
		maxLen = 2
	}
	if n <= maxLen {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, maxLen)
	for i := 0; i < maxLen-1; i++ {
		out = append(out, i)
	}
	return append(out, n-1)
}
