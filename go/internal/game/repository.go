package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/drewhoward/gamenight/go/internal/models"
)

// stateRowID pins the game_state table to a single row.
const stateRowID = 1

// Repository persists the question catalog and the game state snapshot in
// SQLite.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InitSchema creates the tables if they do not exist yet.
func (r *Repository) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			worth INTEGER NOT NULL,
			question_text TEXT NOT NULL,
			answer_text TEXT NOT NULL,
			category TEXT NOT NULL,
			is_answered INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS game_state (
			id INTEGER PRIMARY KEY,
			current_question_id TEXT REFERENCES questions(id),
			scores TEXT NOT NULL DEFAULT '{}',
			allow_buzz INTEGER NOT NULL DEFAULT 0,
			showing_code INTEGER NOT NULL DEFAULT 0
		);`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SeedCatalog inserts the static question list on first run. A non-empty
// catalog is left alone so is_answered flags survive restarts.
func (r *Repository) SeedCatalog(ctx context.Context, questions []models.Question) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range questions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, worth, question_text, answer_text, category, is_answered)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			q.ID, q.Worth, q.QuestionText, q.AnswerText, q.Category, boolToInt(q.IsAnswered))
		if err != nil {
			return fmt.Errorf("failed to seed question %s: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}
	return nil
}

// LoadCatalog reads back every question in insertion order.
func (r *Repository) LoadCatalog(ctx context.Context) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, worth, question_text, answer_text, category, is_answered FROM questions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	defer rows.Close()

	var catalog []models.Question
	for rows.Next() {
		var q models.Question
		var answered int
		if err := rows.Scan(&q.ID, &q.Worth, &q.QuestionText, &q.AnswerText, &q.Category, &answered); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.IsAnswered = answered != 0
		catalog = append(catalog, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}
	return catalog, nil
}

// LoadSnapshot returns the persisted game state row, or nil if none was ever
// written.
func (r *Repository) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	var (
		questionID sql.NullString
		scoresJSON string
		allowBuzz  int
		showCode   int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT current_question_id, scores, allow_buzz, showing_code FROM game_state WHERE id = ?`,
		stateRowID).Scan(&questionID, &scoresJSON, &allowBuzz, &showCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap := &Snapshot{
		AllowBuzz:   allowBuzz != 0,
		ShowingCode: showCode != 0,
	}
	if questionID.Valid {
		snap.CurrentQuestionID = &questionID.String
	}
	if err := json.Unmarshal([]byte(scoresJSON), &snap.Scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores column: %w", err)
	}
	return snap, nil
}

// SaveSnapshot applies a partial update to the single game_state row,
// creating the row first if needed.
func (r *Repository) SaveSnapshot(ctx context.Context, update SnapshotUpdate) error {
	var (
		set  []string
		args []any
	)
	if update.SetCurrentQuestion {
		set = append(set, "current_question_id = ?")
		if update.CurrentQuestionID != nil {
			args = append(args, *update.CurrentQuestionID)
		} else {
			args = append(args, nil)
		}
	}
	if update.Scores != nil {
		scoresJSON, err := json.Marshal(update.Scores)
		if err != nil {
			return fmt.Errorf("failed to encode scores: %w", err)
		}
		set = append(set, "scores = ?")
		args = append(args, string(scoresJSON))
	}
	if update.AllowBuzz != nil {
		set = append(set, "allow_buzz = ?")
		args = append(args, boolToInt(*update.AllowBuzz))
	}
	if update.ShowingCode != nil {
		set = append(set, "showing_code = ?")
		args = append(args, boolToInt(*update.ShowingCode))
	}
	if len(set) == 0 {
		return nil
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO game_state (id, scores) VALUES (?, '{}')`, stateRowID); err != nil {
		return fmt.Errorf("failed to ensure game_state row: %w", err)
	}

	args = append(args, stateRowID)
	query := fmt.Sprintf(`UPDATE game_state SET %s WHERE id = ?`, strings.Join(set, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// MarkQuestionAnswered flips the durable is_answered flag for one question.
func (r *Repository) MarkQuestionAnswered(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE questions SET is_answered = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to mark question %s answered: %w", id, err)
	}
	return nil
}

// ResetAll rolls the durable store back to the baseline: every question
// unanswered, snapshot cleared.
func (r *Repository) ResetAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE questions SET is_answered = 0`); err != nil {
		return fmt.Errorf("failed to clear answered flags: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO game_state (id, scores) VALUES (?, '{}')`, stateRowID); err != nil {
		return fmt.Errorf("failed to ensure game_state row: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE game_state SET current_question_id = NULL, scores = '{}', allow_buzz = 0, showing_code = 0 WHERE id = ?`,
		stateRowID); err != nil {
		return fmt.Errorf("failed to reset snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
