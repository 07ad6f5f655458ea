package models

// Question is one immutable entry in the question catalog. The IsAnswered
// flag is authoritative in durable storage; the copy embedded in
// GameState.CurrentQuestion is a transient projection.
type Question struct {
	ID           string `json:"id" yaml:"id"`
	Worth        int    `json:"worth" yaml:"worth"`
	QuestionText string `json:"questionText" yaml:"question"`
	AnswerText   string `json:"answerText" yaml:"answer"`
	Category     string `json:"category" yaml:"category"`
	IsAnswered   bool   `json:"isAnswered" yaml:"-"`
}
