package model

type QuizQuestion struct {
	Question string `json:"question"`
	A        string `json:"a"`
	B        string `json:"b"`
	C        string `json:"c"`
	D        string `json:"d"`
	// Correct is one of "A", "B", "C", "D".
	Correct string `json:"correct"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}
