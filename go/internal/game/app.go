package game

import (
	"context"
	"log"
	"slices"
	"sync"

	"github.com/drewhoward/gamenight/go/internal/models"
)

// GameRepository defines what the app layer needs from durable storage.
type GameRepository interface {
	SeedCatalog(ctx context.Context, questions []models.Question) error
	LoadCatalog(ctx context.Context) ([]models.Question, error)
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, update SnapshotUpdate) error
	MarkQuestionAnswered(ctx context.Context, id string) error
	ResetAll(ctx context.Context) error
}

// App owns the game state transitions. Every message handler maps to one
// method here. Each mutating method runs its in-memory mutation and its
// durable write inside the same critical section, so snapshots written to
// storage never reorder against each other. A failed durable write is logged
// and the in-memory mutation stands; availability wins over durability.
type App struct {
	repo  GameRepository
	store *Store

	// opMu serializes whole operations (mutation + write-through).
	opMu    sync.Mutex
	catalog []models.Question
	index   map[string]int
}

// NewApp creates the game application. repo may be nil to run purely
// in-memory.
func NewApp(repo GameRepository) *App {
	return &App{
		repo:  repo,
		store: NewStore(),
		index: make(map[string]int),
	}
}

// Bootstrap seeds the catalog on first run and rebuilds the in-memory state
// from the persisted snapshot. Any load failure falls back to the default
// baseline so the network layer can still come up.
func (a *App) Bootstrap(ctx context.Context, seed []models.Question) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.setCatalog(seed)
	a.store.Replace(models.DefaultGameState())
	if a.repo == nil {
		return
	}

	if err := a.repo.SeedCatalog(ctx, seed); err != nil {
		log.Printf("seed catalog failed, running on in-memory defaults: %v", err)
		return
	}
	catalog, err := a.repo.LoadCatalog(ctx)
	if err != nil {
		log.Printf("load catalog failed, running on in-memory defaults: %v", err)
		return
	}
	a.setCatalog(catalog)

	snap, err := a.repo.LoadSnapshot(ctx)
	if err != nil {
		log.Printf("load snapshot failed, running on in-memory defaults: %v", err)
		return
	}
	if snap == nil {
		// First run: write the baseline as the initial snapshot.
		def := models.DefaultGameState()
		a.persist(ctx, SnapshotUpdate{
			SetCurrentQuestion: true,
			Scores:             def.Scores,
			AllowBuzz:          &def.AllowBuzz,
			ShowingCode:        &def.ShowingCode,
		})
		return
	}

	state := models.DefaultGameState()
	if snap.Scores != nil {
		state.Scores = snap.Scores
	}
	state.AllowBuzz = snap.AllowBuzz
	state.ShowingCode = snap.ShowingCode
	if snap.CurrentQuestionID != nil {
		if q, ok := a.lookup(*snap.CurrentQuestionID); ok {
			state.CurrentQuestion = &q
		}
	}
	// The played list is recomputed from the catalog flags, not stored
	// separately.
	for _, q := range a.catalog {
		if q.IsAnswered {
			state.PlayedQuestions = append(state.PlayedQuestions, q.ID)
		}
	}
	a.store.Replace(state)
	log.Printf("restored game state: %d teams, %d played questions", len(state.Scores), len(state.PlayedQuestions))
}

// Snapshot returns a deep copy of the current game state.
func (a *App) Snapshot() models.GameState {
	return a.store.Snapshot()
}

// Catalog returns a copy of the question catalog in insertion order.
func (a *App) Catalog() []models.Question {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	return slices.Clone(a.catalog)
}

// Reset drives the state back to the default baseline and forces the same
// rollback onto durable storage.
func (a *App) Reset(ctx context.Context) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	for i := range a.catalog {
		a.catalog[i].IsAnswered = false
	}
	a.store.Replace(models.DefaultGameState())
	if a.repo != nil {
		if err := a.repo.ResetAll(ctx); err != nil {
			log.Printf("durable reset failed (in-memory state reset anyway): %v", err)
		}
	}
}

// SignUp registers a new team with a zero score. A name that is already
// signed up (or empty) is a no-op.
func (a *App) SignUp(ctx context.Context, teamName string) bool {
	if teamName == "" {
		return false
	}
	a.opMu.Lock()
	defer a.opMu.Unlock()

	created := false
	var scores map[string]int
	a.store.Update(func(st *models.GameState) {
		if _, exists := st.Scores[teamName]; exists {
			return
		}
		st.Scores[teamName] = 0
		created = true
		scores = copyScores(st.Scores)
	})
	if created {
		a.persist(ctx, SnapshotUpdate{Scores: scores})
	}
	return created
}

// SetViewingQuestion makes the given question current. The catalog copy wins
// so the projection carries the authoritative is_answered flag; an id that is
// not in the catalog is a no-op, keeping a non-null currentQuestion a valid
// catalog reference.
func (a *App) SetViewingQuestion(ctx context.Context, question models.Question) bool {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	cataloged, ok := a.lookup(question.ID)
	if !ok {
		return false
	}
	a.store.Update(func(st *models.GameState) {
		q := cataloged
		st.CurrentQuestion = &q
	})
	a.persist(ctx, SnapshotUpdate{SetCurrentQuestion: true, CurrentQuestionID: &cataloged.ID})
	return true
}

// UnsetQuestion clears the current question.
func (a *App) UnsetQuestion(ctx context.Context) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.store.Update(func(st *models.GameState) {
		st.CurrentQuestion = nil
	})
	a.persist(ctx, SnapshotUpdate{SetCurrentQuestion: true})
}

// RevealAnswer marks the current question answered in the catalog and the
// durable store and records it as played. No-op when no question is current.
func (a *App) RevealAnswer(ctx context.Context) bool {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	revealed := false
	var questionID string
	a.store.Update(func(st *models.GameState) {
		if st.CurrentQuestion == nil {
			return
		}
		st.CurrentQuestion.IsAnswered = true
		questionID = st.CurrentQuestion.ID
		if !slices.Contains(st.PlayedQuestions, questionID) {
			st.PlayedQuestions = append(st.PlayedQuestions, questionID)
		}
		revealed = true
	})
	if !revealed {
		return false
	}

	if i, ok := a.index[questionID]; ok {
		a.catalog[i].IsAnswered = true
	}
	if a.repo != nil {
		if err := a.repo.MarkQuestionAnswered(ctx, questionID); err != nil {
			log.Printf("mark question %s answered failed (in-memory state kept): %v", questionID, err)
		}
	}
	return true
}

// SetAllowBuzz opens or closes the buzzer gate.
func (a *App) SetAllowBuzz(ctx context.Context, allowed bool) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.store.Update(func(st *models.GameState) {
		st.AllowBuzz = allowed
	})
	a.persist(ctx, SnapshotUpdate{AllowBuzz: &allowed})
}

// BuzzIn accepts the first buzz while the gate is open and closes it.
// Exactly one of any set of concurrent buzzes wins.
func (a *App) BuzzIn(ctx context.Context, teamName string) bool {
	if teamName == "" {
		return false
	}
	a.opMu.Lock()
	defer a.opMu.Unlock()

	accepted := false
	a.store.Update(func(st *models.GameState) {
		if !st.AllowBuzz {
			return
		}
		st.AllowBuzz = false
		accepted = true
	})
	if accepted {
		closed := false
		a.persist(ctx, SnapshotUpdate{AllowBuzz: &closed})
	}
	return accepted
}

// ClearBuzz closes the buzzer gate unconditionally.
func (a *App) ClearBuzz(ctx context.Context) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.store.Update(func(st *models.GameState) {
		st.AllowBuzz = false
	})
	closed := false
	a.persist(ctx, SnapshotUpdate{AllowBuzz: &closed})
}

// AwardPoints adds amount to an existing team's score. Unknown teams are a
// silent no-op; scores are not clamped and may go negative.
func (a *App) AwardPoints(ctx context.Context, teamName string, amount int) bool {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	applied := false
	var scores map[string]int
	a.store.Update(func(st *models.GameState) {
		if _, exists := st.Scores[teamName]; !exists {
			return
		}
		st.Scores[teamName] += amount
		applied = true
		scores = copyScores(st.Scores)
	})
	if applied {
		a.persist(ctx, SnapshotUpdate{Scores: scores})
	}
	return applied
}

// DeductPoints subtracts amount from an existing team's score.
func (a *App) DeductPoints(ctx context.Context, teamName string, amount int) bool {
	return a.AwardPoints(ctx, teamName, -amount)
}

// SetShowCode toggles the join-code display flag.
func (a *App) SetShowCode(ctx context.Context, show bool) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.store.Update(func(st *models.GameState) {
		st.ShowingCode = show
	})
	a.persist(ctx, SnapshotUpdate{ShowingCode: &show})
}

// RemoveTeam deletes a team's score entry. Best-effort cleanup only; points
// already awarded elsewhere are not reconciled.
func (a *App) RemoveTeam(ctx context.Context, teamName string) {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	removed := false
	var scores map[string]int
	a.store.Update(func(st *models.GameState) {
		if _, exists := st.Scores[teamName]; !exists {
			return
		}
		delete(st.Scores, teamName)
		removed = true
		scores = copyScores(st.Scores)
	})
	if removed {
		a.persist(ctx, SnapshotUpdate{Scores: scores})
	}
}

// IncrementCount bumps the diagnostic counter. Intentionally not persisted.
func (a *App) IncrementCount() {
	a.store.Update(func(st *models.GameState) {
		st.Count++
	})
}

func (a *App) setCatalog(questions []models.Question) {
	a.catalog = slices.Clone(questions)
	a.index = make(map[string]int, len(questions))
	for i, q := range a.catalog {
		a.index[q.ID] = i
	}
}

func (a *App) lookup(id string) (models.Question, bool) {
	if i, ok := a.index[id]; ok {
		return a.catalog[i], true
	}
	return models.Question{}, false
}

func (a *App) persist(ctx context.Context, update SnapshotUpdate) {
	if a.repo == nil {
		return
	}
	if err := a.repo.SaveSnapshot(ctx, update); err != nil {
		log.Printf("persist game state failed (in-memory state kept): %v", err)
	}
}

func copyScores(scores map[string]int) map[string]int {
	out := make(map[string]int, len(scores))
	for team, score := range scores {
		out[team] = score
	}
	return out
}
