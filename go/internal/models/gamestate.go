package models

// GameState is the single authoritative state value for the running game.
// Exactly one instance exists per process; it is owned by the game store and
// mutated only through message handlers.
type GameState struct {
	CurrentQuestion *Question      `json:"currentQuestion"`
	Scores          map[string]int `json:"scores"`
	Count           int            `json:"count"`
	PlayedQuestions []string       `json:"playedQuestions"`
	AllowBuzz       bool           `json:"allowBuzz"`
	ShowingCode     bool           `json:"showingCode"`
}

// DefaultGameState returns the baseline state: no question, no teams, buzzing
// closed. Scores and PlayedQuestions are non-nil so they serialize as {} and
// [] rather than null.
func DefaultGameState() GameState {
	return GameState{
		CurrentQuestion: nil,
		Scores:          make(map[string]int),
		Count:           0,
		PlayedQuestions: []string{},
		AllowBuzz:       false,
		ShowingCode:     false,
	}
}

// Clone returns a deep copy safe to serialize or hand to another goroutine
// while the original keeps being mutated.
func (s GameState) Clone() GameState {
	out := s
	out.Scores = make(map[string]int, len(s.Scores))
	for team, score := range s.Scores {
		out.Scores[team] = score
	}
	out.PlayedQuestions = append([]string{}, s.PlayedQuestions...)
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		out.CurrentQuestion = &q
	}
	return out
}
