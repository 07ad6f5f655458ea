package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		path := writeCatalog(t, `
questions:
  - id: born
    worth: 200
    category: Before You Met Me
    question: Where was I born?
    answer: Dallas
  - id: fav-artist
    worth: 300
    category: Music
    question: Who is my favorite music artist?
    answer: Jane Remover
`)
		questions, err := Load(path)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(questions))
		}
		q := questions[0]
		if q.ID != "born" || q.Worth != 200 || q.QuestionText != "Where was I born?" || q.AnswerText != "Dallas" {
			t.Errorf("first question mismatch: %+v", q)
		}
		if q.IsAnswered {
			t.Error("seeded questions start unanswered")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		path := writeCatalog(t, "questions: []\n")
		if _, err := Load(path); err == nil {
			t.Error("expected an error for an empty catalog")
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		path := writeCatalog(t, `
questions:
  - id: born
    worth: 200
    category: Misc.
    question: q
    answer: a
  - id: born
    worth: 300
    category: Misc.
    question: q2
    answer: a2
`)
		if _, err := Load(path); err == nil {
			t.Error("expected an error for duplicate ids")
		}
	})

	t.Run("non-positive worth", func(t *testing.T) {
		path := writeCatalog(t, `
questions:
  - id: born
    worth: 0
    category: Misc.
    question: q
    answer: a
`)
		if _, err := Load(path); err == nil {
			t.Error("expected an error for a zero worth")
		}
	})
}
