package model

// Chunk is one retrievable piece of an uploaded document.
type Chunk struct {
	Text string `json:"text"`
	// Source is the uploaded file name.
	Source   string `json:"source"`
	Document int    `json:"document"`
	Ordinal  int    `json:"ordinal"`
}

type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}
