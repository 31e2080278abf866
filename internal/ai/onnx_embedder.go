package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const defaultMaxSeqLen = 256

type ONNXConfig struct {
	ModelPath     string
	TokenizerPath string
	SharedLibPath string
	MaxSeqLen     int
}

// ONNXEmbedder runs a sentence-transformer (all-MiniLM-L6-v2 layout) locally: mean pooling
// over the last hidden state followed by L2 normalisation. Init loads the model and tokenizer;
// the embed methods call it on first use when it has not run yet.
type ONNXEmbedder struct {
	mu  sync.Mutex
	cfg ONNXConfig

	tokenizer   *hfTokenizer
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
	dim         int64
	inited      bool
}

func NewONNXEmbedder(cfg ONNXConfig) *ONNXEmbedder {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = defaultMaxSeqLen
	}
	if cfg.MaxSeqLen < 2 {
		cfg.MaxSeqLen = 2
	}
	return &ONNXEmbedder{cfg: cfg}
}

// Init loads the tokenizer and the ONNX session. It is safe to call more than once.
func (e *ONNXEmbedder) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return nil
	}

	tokenizer, err := loadTokenizer(e.cfg.TokenizerPath)
	if err != nil {
		return err
	}

	if e.cfg.SharedLibPath != "" {
		ort.SetSharedLibraryPath(e.cfg.SharedLibPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("onnx init environment: %w", err)
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(e.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return errors.New("onnx model has no inputs or outputs")
	}
	inputNames := make([]string, len(inputs))
	for i := range inputs {
		inputNames[i] = inputs[i].Name
	}
	hidden := outputs[0]
	if len(hidden.Dimensions) != 3 || hidden.Dimensions[2] <= 0 {
		return fmt.Errorf("onnx output %q has unexpected shape %v", hidden.Name, hidden.Dimensions)
	}

	session, err := ort.NewDynamicAdvancedSession(e.cfg.ModelPath, inputNames, []string{hidden.Name}, nil)
	if err != nil {
		return fmt.Errorf("onnx new session: %w", err)
	}

	e.tokenizer = tokenizer
	e.session = session
	e.inputNames = inputNames
	e.outputNames = []string{hidden.Name}
	e.dim = hidden.Dimensions[2]
	e.inited = true
	return nil
}

func (e *ONNXEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.Init(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embedOne(text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *ONNXEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("embedding input is empty")
	}
	if err := e.Init(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embedOne(text)
}

func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	enc, err := e.tokenizer.encode(text, e.cfg.MaxSeqLen)
	if err != nil {
		return nil, err
	}
	seqLen := int64(len(enc.ids))
	shape := ort.NewShape(1, seqLen)

	feeds := map[string][]int64{
		"input_ids":      enc.ids,
		"attention_mask": enc.mask,
		"token_type_ids": enc.typeIDs,
	}

	inputs := make([]ort.Value, 0, len(e.inputNames))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, name := range e.inputNames {
		data, ok := feeds[name]
		if !ok {
			return nil, fmt.Errorf("onnx model input %q is not supported", name)
		}
		tensor, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx new input tensor %q: %w", name, err)
		}
		inputs = append(inputs, tensor)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, e.dim))
	if err != nil {
		return nil, fmt.Errorf("onnx new output tensor: %w", err)
	}
	defer output.Destroy()

	if err := e.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	return meanPoolNormalize(output.GetData(), int(seqLen), int(e.dim)), nil
}

// meanPoolNormalize averages token vectors (every token is unmasked) and scales to unit length.
func meanPoolNormalize(hidden []float32, seqLen, dim int) []float32 {
	out := make([]float32, dim)
	if seqLen == 0 {
		return out
	}
	for t := 0; t < seqLen; t++ {
		row := hidden[t*dim : (t+1)*dim]
		for i, v := range row {
			out[i] += v
		}
	}
	var norm float64
	for i := range out {
		out[i] /= float32(seqLen)
		norm += float64(out[i]) * float64(out[i])
	}
	if norm == 0 {
		return out
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range out {
		out[i] *= scale
	}
	return out
}

func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.inited = false
	return err
}
