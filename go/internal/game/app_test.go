package game

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/drewhoward/gamenight/go/internal/models"
)

// fakeRepo records durable writes so tests can assert on write-through
// behavior without a real database.
type fakeRepo struct {
	mu       sync.Mutex
	catalog  []models.Question
	snapshot *Snapshot
	saves    []SnapshotUpdate
	answered []string
	resets   int

	loadSnapshotErr error
	saveErr         error
}

func (f *fakeRepo) SeedCatalog(_ context.Context, questions []models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.catalog) == 0 {
		f.catalog = append([]models.Question{}, questions...)
	}
	return nil
}

func (f *fakeRepo) LoadCatalog(_ context.Context) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Question{}, f.catalog...), nil
}

func (f *fakeRepo) LoadSnapshot(_ context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, f.loadSnapshotErr
}

func (f *fakeRepo) SaveSnapshot(_ context.Context, update SnapshotUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, update)
	return nil
}

func (f *fakeRepo) MarkQuestionAnswered(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeRepo) ResetAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeRepo) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func seedQuestions() []models.Question {
	return []models.Question{
		{ID: "a", Worth: 200, QuestionText: "Q A", AnswerText: "A", Category: "Misc."},
		{ID: "b", Worth: 300, QuestionText: "Q B", AnswerText: "B", Category: "Misc."},
	}
}

func newTestApp(t *testing.T, repo GameRepository) *App {
	t.Helper()
	app := NewApp(repo)
	app.Bootstrap(context.Background(), seedQuestions())
	return app
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a team with a zero score", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		if !app.SignUp(ctx, "Red") {
			t.Fatal("expected sign-up to be accepted")
		}
		if got := app.Snapshot().Scores["Red"]; got != 0 {
			t.Errorf("expected score 0, got %d", got)
		}
	})

	t.Run("duplicate name is a no-op", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SignUp(ctx, "Red")
		app.AwardPoints(ctx, "Red", 300)

		if app.SignUp(ctx, "Red") {
			t.Error("duplicate sign-up should be rejected")
		}
		state := app.Snapshot()
		if len(state.Scores) != 1 {
			t.Errorf("expected one team, got %v", state.Scores)
		}
		if state.Scores["Red"] != 300 {
			t.Errorf("duplicate sign-up reset the score: got %d", state.Scores["Red"])
		}
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		if app.SignUp(ctx, "") {
			t.Error("empty team name should be rejected")
		}
	})

	t.Run("writes scores through to storage", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		before := repo.saveCount()
		app.SignUp(ctx, "Red")
		if repo.saveCount() != before+1 {
			t.Error("expected sign-up to persist the scores")
		}
		last := repo.saves[len(repo.saves)-1]
		if _, ok := last.Scores["Red"]; !ok {
			t.Errorf("persisted scores missing new team: %v", last.Scores)
		}
	})
}

func TestBuzz(t *testing.T) {
	ctx := context.Background()

	t.Run("buzz while disallowed is ignored", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		if app.BuzzIn(ctx, "Red") {
			t.Error("buzz should be rejected while the gate is closed")
		}
	})

	t.Run("first buzz wins and closes the gate", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SetAllowBuzz(ctx, true)

		if !app.BuzzIn(ctx, "Red") {
			t.Fatal("first buzz should be accepted")
		}
		if app.Snapshot().AllowBuzz {
			t.Error("accepted buzz must close the gate")
		}
		if app.BuzzIn(ctx, "Blue") {
			t.Error("second buzz should be rejected until the gate reopens")
		}
	})

	t.Run("exactly one concurrent buzz wins", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SetAllowBuzz(ctx, true)

		teams := []string{"Red", "Blue", "Green", "Yellow"}
		results := make(chan bool, len(teams))
		var wg sync.WaitGroup
		for _, team := range teams {
			wg.Add(1)
			go func(team string) {
				defer wg.Done()
				results <- app.BuzzIn(ctx, team)
			}(team)
		}
		wg.Wait()
		close(results)

		accepted := 0
		for won := range results {
			if won {
				accepted++
			}
		}
		if accepted != 1 {
			t.Errorf("expected exactly one accepted buzz, got %d", accepted)
		}
		if app.Snapshot().AllowBuzz {
			t.Error("gate must be closed after the winning buzz")
		}
	})

	t.Run("clearBuzz closes the gate", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SetAllowBuzz(ctx, true)
		app.ClearBuzz(ctx)
		if app.Snapshot().AllowBuzz {
			t.Error("clearBuzz should close the gate")
		}
	})
}

func TestPoints(t *testing.T) {
	ctx := context.Background()

	t.Run("award then deduct restores the original score", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SignUp(ctx, "Red")
		app.AwardPoints(ctx, "Red", 500)

		app.AwardPoints(ctx, "Red", 300)
		app.DeductPoints(ctx, "Red", 300)

		if got := app.Snapshot().Scores["Red"]; got != 500 {
			t.Errorf("round trip broke the score: got %d, want 500", got)
		}
	})

	t.Run("unknown team is a silent no-op", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		app.SignUp(ctx, "Red")
		app.AwardPoints(ctx, "Red", 300)
		before := repo.saveCount()

		if app.AwardPoints(ctx, "Blue", 100) {
			t.Error("award to unknown team should not apply")
		}
		state := app.Snapshot()
		if _, exists := state.Scores["Blue"]; exists {
			t.Error("award to unknown team must not create an entry")
		}
		if state.Scores["Red"] != 300 {
			t.Errorf("unrelated score changed: got %d", state.Scores["Red"])
		}
		if repo.saveCount() != before {
			t.Error("no-op award should not persist anything")
		}
	})

	t.Run("scores may go negative", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SignUp(ctx, "Red")
		app.DeductPoints(ctx, "Red", 400)
		if got := app.Snapshot().Scores["Red"]; got != -400 {
			t.Errorf("expected -400, got %d", got)
		}
	})
}

func TestQuestionFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("view then reveal marks the question played", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)

		app.SetViewingQuestion(ctx, models.Question{ID: "a"})
		state := app.Snapshot()
		if state.CurrentQuestion == nil || state.CurrentQuestion.ID != "a" {
			t.Fatalf("expected current question a, got %+v", state.CurrentQuestion)
		}
		// The catalog copy wins, so the projection carries the full record.
		if state.CurrentQuestion.Worth != 200 {
			t.Errorf("expected catalog copy with worth 200, got %d", state.CurrentQuestion.Worth)
		}

		if !app.RevealAnswer(ctx) {
			t.Fatal("expected reveal to succeed")
		}
		state = app.Snapshot()
		if !state.CurrentQuestion.IsAnswered {
			t.Error("current question should be marked answered")
		}
		if len(state.PlayedQuestions) != 1 || state.PlayedQuestions[0] != "a" {
			t.Errorf("expected playedQuestions [a], got %v", state.PlayedQuestions)
		}
		if len(repo.answered) != 1 || repo.answered[0] != "a" {
			t.Errorf("expected durable mark for a, got %v", repo.answered)
		}
	})

	t.Run("question id outside the catalog is rejected", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		app.SetViewingQuestion(ctx, models.Question{ID: "a"})
		before := repo.saveCount()

		if app.SetViewingQuestion(ctx, models.Question{ID: "ghost", Worth: 999}) {
			t.Error("unknown question id should be rejected")
		}
		state := app.Snapshot()
		if state.CurrentQuestion == nil || state.CurrentQuestion.ID != "a" {
			t.Errorf("current question should be untouched, got %+v", state.CurrentQuestion)
		}
		if repo.saveCount() != before {
			t.Error("rejected question must not persist anything")
		}
	})

	t.Run("reveal without a question is a no-op", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		if app.RevealAnswer(ctx) {
			t.Error("reveal with no current question should fail")
		}
		if len(repo.answered) != 0 {
			t.Errorf("no durable write expected, got %v", repo.answered)
		}
	})

	t.Run("revealing twice does not duplicate the played entry", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SetViewingQuestion(ctx, models.Question{ID: "a"})
		app.RevealAnswer(ctx)
		app.RevealAnswer(ctx)
		if got := app.Snapshot().PlayedQuestions; len(got) != 1 {
			t.Errorf("expected one played entry, got %v", got)
		}
	})

	t.Run("unsetQuestion clears the projection", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SetViewingQuestion(ctx, models.Question{ID: "a"})
		app.UnsetQuestion(ctx)
		if app.Snapshot().CurrentQuestion != nil {
			t.Error("expected current question cleared")
		}
	})
}

func TestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("drives state and catalog back to baseline", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		app.SignUp(ctx, "Red")
		app.AwardPoints(ctx, "Red", 300)
		app.SetViewingQuestion(ctx, models.Question{ID: "a"})
		app.RevealAnswer(ctx)
		app.SetAllowBuzz(ctx, true)
		app.SetShowCode(ctx, true)

		app.Reset(ctx)

		state := app.Snapshot()
		if len(state.Scores) != 0 {
			t.Errorf("expected scores cleared, got %v", state.Scores)
		}
		if state.CurrentQuestion != nil {
			t.Error("expected current question cleared")
		}
		if len(state.PlayedQuestions) != 0 {
			t.Errorf("expected played questions cleared, got %v", state.PlayedQuestions)
		}
		if state.AllowBuzz || state.ShowingCode {
			t.Error("expected flags cleared")
		}
		for _, q := range app.Catalog() {
			if q.IsAnswered {
				t.Errorf("catalog question %s still answered after reset", q.ID)
			}
		}
		if repo.resets != 1 {
			t.Errorf("expected one durable reset, got %d", repo.resets)
		}
	})
}

func TestMiscHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("removeTeam deletes the entry", func(t *testing.T) {
		app := newTestApp(t, &fakeRepo{})
		app.SignUp(ctx, "Red")
		app.RemoveTeam(ctx, "Red")
		if _, exists := app.Snapshot().Scores["Red"]; exists {
			t.Error("expected team removed")
		}
	})

	t.Run("removeTeam of unknown team persists nothing", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		before := repo.saveCount()
		app.RemoveTeam(ctx, "Ghost")
		if repo.saveCount() != before {
			t.Error("no-op removal should not persist")
		}
	})

	t.Run("incrementCount is not persisted", func(t *testing.T) {
		repo := &fakeRepo{}
		app := newTestApp(t, repo)
		before := repo.saveCount()
		app.IncrementCount()
		if got := app.Snapshot().Count; got != 1 {
			t.Errorf("expected count 1, got %d", got)
		}
		if repo.saveCount() != before {
			t.Error("incrementCount must not write to storage")
		}
	})

	t.Run("persistence failure keeps the in-memory mutation", func(t *testing.T) {
		repo := &fakeRepo{saveErr: errors.New("disk gone")}
		app := newTestApp(t, repo)
		app.SignUp(ctx, "Red")
		if _, exists := app.Snapshot().Scores["Red"]; !exists {
			t.Error("in-memory mutation must stand when the durable write fails")
		}
	})
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("first run writes the default snapshot", func(t *testing.T) {
		repo := &fakeRepo{}
		app := NewApp(repo)
		app.Bootstrap(ctx, seedQuestions())

		if repo.saveCount() != 1 {
			t.Fatalf("expected one initial snapshot write, got %d", repo.saveCount())
		}
		initial := repo.saves[0]
		if !initial.SetCurrentQuestion || initial.CurrentQuestionID != nil {
			t.Error("initial snapshot should clear the current question")
		}
		if len(app.Catalog()) != 2 {
			t.Errorf("expected seeded catalog, got %v", app.Catalog())
		}
	})

	t.Run("restores state from a persisted snapshot", func(t *testing.T) {
		questionID := "b"
		repo := &fakeRepo{
			catalog: []models.Question{
				{ID: "a", Worth: 200, IsAnswered: true},
				{ID: "b", Worth: 300},
			},
			snapshot: &Snapshot{
				CurrentQuestionID: &questionID,
				Scores:            map[string]int{"Red": 400},
				AllowBuzz:         true,
				ShowingCode:       true,
			},
		}
		app := NewApp(repo)
		app.Bootstrap(ctx, seedQuestions())

		state := app.Snapshot()
		if state.CurrentQuestion == nil || state.CurrentQuestion.ID != "b" {
			t.Fatalf("expected current question b, got %+v", state.CurrentQuestion)
		}
		if state.Scores["Red"] != 400 {
			t.Errorf("expected restored score 400, got %d", state.Scores["Red"])
		}
		if !state.AllowBuzz || !state.ShowingCode {
			t.Error("expected restored flags")
		}
		// Played questions are recomputed from catalog flags, not stored.
		if len(state.PlayedQuestions) != 1 || state.PlayedQuestions[0] != "a" {
			t.Errorf("expected playedQuestions [a], got %v", state.PlayedQuestions)
		}
	})

	t.Run("unknown current question id resolves to null", func(t *testing.T) {
		questionID := "gone"
		repo := &fakeRepo{
			catalog:  seedQuestions(),
			snapshot: &Snapshot{CurrentQuestionID: &questionID, Scores: map[string]int{}},
		}
		app := NewApp(repo)
		app.Bootstrap(ctx, seedQuestions())

		if app.Snapshot().CurrentQuestion != nil {
			t.Error("expected unresolvable question id to leave currentQuestion null")
		}
	})

	t.Run("load failure falls back to the default baseline", func(t *testing.T) {
		repo := &fakeRepo{loadSnapshotErr: errors.New("corrupt db")}
		app := NewApp(repo)
		app.Bootstrap(ctx, seedQuestions())

		state := app.Snapshot()
		if len(state.Scores) != 0 || state.CurrentQuestion != nil || state.AllowBuzz {
			t.Errorf("expected default baseline, got %+v", state)
		}
		if len(app.Catalog()) == 0 {
			t.Error("catalog should still come from the seed list")
		}
	})

	t.Run("nil repository runs purely in-memory", func(t *testing.T) {
		app := NewApp(nil)
		app.Bootstrap(ctx, seedQuestions())
		app.SignUp(ctx, "Red")
		if _, exists := app.Snapshot().Scores["Red"]; !exists {
			t.Error("in-memory mode should still mutate state")
		}
	})
}
