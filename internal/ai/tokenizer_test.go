package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateEncodingKeepsShortSequences(t *testing.T) {
	in := truncateEncoding([]int{101, 7592, 102}, []int{1, 1, 1}, []int{0, 0, 0}, 8)
	assert.Equal(t, []int64{101, 7592, 102}, in.ids)
	assert.Equal(t, []int64{1, 1, 1}, in.mask)
	assert.Equal(t, []int64{0, 0, 0}, in.typeIDs)
}

func TestTruncateEncodingPreservesTrailingSeparator(t *testing.T) {
	ids := []int{101, 1, 2, 3, 4, 5, 102}
	in := truncateEncoding(ids, nil, nil, 4)
	assert.Equal(t, []int64{101, 1, 2, 102}, in.ids)
	assert.Equal(t, []int64{1, 1, 1, 1}, in.mask)
	assert.Equal(t, []int64{0, 0, 0, 0}, in.typeIDs)
}

func TestLoadTokenizerMissingFile(t *testing.T) {
	_, err := loadTokenizer("testdata/does-not-exist.json")
	require.Error(t, err)
}

func TestONNXEmbedderInitFailsWithoutAssets(t *testing.T) {
	e := NewONNXEmbedder(ONNXConfig{
		ModelPath:     "testdata/missing.onnx",
		TokenizerPath: "testdata/missing-tokenizer.json",
		SharedLibPath: "testdata/missing-onnxruntime.so",
	})
	require.Error(t, e.Init())
	require.NoError(t, e.Close())
}

func TestMeanPoolNormalize(t *testing.T) {
	hidden := []float32{
		1, 0,
		3, 0,
	}
	out := meanPoolNormalize(hidden, 2, 2)
	assert.InDelta(t, 1.0, out[0], 1e-6)
	assert.InDelta(t, 0.0, out[1], 1e-6)
}
