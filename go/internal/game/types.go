package game

// Snapshot is the persisted game_state row as read back from storage.
type Snapshot struct {
	CurrentQuestionID *string
	Scores            map[string]int
	AllowBuzz         bool
	ShowingCode       bool
}

// SnapshotUpdate is a partial write against the single game_state row.
// Nil fields leave the column untouched. CurrentQuestionID is only applied
// when SetCurrentQuestion is true, so the column can be cleared to NULL.
type SnapshotUpdate struct {
	SetCurrentQuestion bool
	CurrentQuestionID  *string
	Scores             map[string]int
	AllowBuzz          *bool
	ShowingCode        *bool
}
