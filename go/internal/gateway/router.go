package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/drewhoward/gamenight/go/internal/game"
)

// HandlerFunc processes one decoded client frame. Explicit broadcasts happen
// inside the handler; the router fans out the trailing full-state sync after
// it returns.
type HandlerFunc func(ctx context.Context, sender *Connection, env *Envelope) error

// Router maps a frame's type tag to its handler and owns the trailing sync.
// Unknown types and malformed frames are logged and dropped, never fatal.
type Router struct {
	app      *game.App
	cm       *ConnectionManager
	handlers map[string]HandlerFunc

	// dispatchMu serializes handler execution with the trailing-sync enqueue.
	// Each sync lands on the fanout queue in mutation order, so a later sync
	// never carries an older state than an earlier one.
	dispatchMu sync.Mutex
}

// NewRouter builds the dispatch table over the game application.
func NewRouter(app *game.App, cm *ConnectionManager) *Router {
	r := &Router{app: app, cm: cm}
	r.handlers = map[string]HandlerFunc{
		MsgReset:              r.handleReset,
		MsgSignUp:             r.handleSignUp,
		MsgSetViewingQuestion: r.handleSetViewingQuestion,
		MsgUnsetQuestion:      r.handleUnsetQuestion,
		MsgRevealAnswer:       r.handleRevealAnswer,
		MsgAllowBuzz:          r.handleAllowBuzz,
		MsgBuzzIn:             r.handleBuzzIn,
		MsgClearBuzz:          r.handleClearBuzz,
		MsgStartTimer:         r.handleStartTimer,
		MsgStopTimer:          r.handleStopTimer,
		MsgAwardPoints:        r.handleAwardPoints,
		MsgDeductPoints:       r.handleDeductPoints,
		MsgSetShowCode:        r.handleSetShowCode,
		MsgRemoveTeam:         r.handleRemoveTeam,
		MsgIncrementCount:     r.handleIncrementCount,

		// sync is server-originated; a client sending it is ignored.
		MsgSync: nil,
	}
	return r
}

// HandleFrame decodes and dispatches one inbound frame, then fans out the
// trailing sync so every connection (sender included) sees the post-handler
// state even when the handler broadcast nothing itself.
func (r *Router) HandleFrame(ctx context.Context, sender *Connection, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", sender.ID).
			Msg("dropping malformed frame")
		return
	}
	if env.Type == "" {
		log.Warn().
			Str("connection_id", sender.ID).
			Msg("dropping frame without a type")
		return
	}

	handler, registered := r.handlers[env.Type]
	if !registered {
		log.Warn().
			Str("type", env.Type).
			Str("connection_id", sender.ID).
			Msg("no handler registered for message type")
		return
	}
	if handler == nil {
		return
	}

	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	env.raw = frame
	if err := handler(ctx, sender, &env); err != nil {
		log.Error().
			Err(err).
			Str("type", env.Type).
			Str("connection_id", sender.ID).
			Msg("message handler failed")
	}

	r.cm.Broadcast(MsgSync, r.app.Snapshot(), nil, true)
}

// SyncTo unicasts the full current state to one connection.
func (r *Router) SyncTo(conn *Connection) {
	r.cm.Unicast(conn, MsgSync, r.app.Snapshot())
}

func (r *Router) handleReset(ctx context.Context, _ *Connection, _ *Envelope) error {
	r.app.Reset(ctx)
	return nil
}

func (r *Router) handleSignUp(ctx context.Context, _ *Connection, env *Envelope) error {
	var p SignUpPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad signUp payload: %w", err)
	}
	r.app.SignUp(ctx, p.TeamName)
	return nil
}

func (r *Router) handleSetViewingQuestion(ctx context.Context, sender *Connection, env *Envelope) error {
	var p SetViewingQuestionPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad setViewingQuestion payload: %w", err)
	}
	if r.app.SetViewingQuestion(ctx, p.Question) {
		// Pass-through relay so other viewers navigate immediately.
		r.cm.Relay(sender, env.raw)
	}
	return nil
}

func (r *Router) handleUnsetQuestion(ctx context.Context, _ *Connection, _ *Envelope) error {
	r.app.UnsetQuestion(ctx)
	return nil
}

func (r *Router) handleRevealAnswer(ctx context.Context, _ *Connection, _ *Envelope) error {
	r.app.RevealAnswer(ctx)
	return nil
}

func (r *Router) handleAllowBuzz(ctx context.Context, _ *Connection, env *Envelope) error {
	var p AllowBuzzPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad allowBuzz payload: %w", err)
	}
	r.app.SetAllowBuzz(ctx, p.Allowed)
	return nil
}

func (r *Router) handleBuzzIn(ctx context.Context, sender *Connection, env *Envelope) error {
	var p BuzzInPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad buzzIn payload: %w", err)
	}
	if r.app.BuzzIn(ctx, p.TeamName) {
		r.cm.Broadcast(MsgBuzzAccepted, BuzzAcceptedPayload{TeamName: p.TeamName}, sender, true)
	}
	return nil
}

func (r *Router) handleClearBuzz(ctx context.Context, sender *Connection, _ *Envelope) error {
	r.app.ClearBuzz(ctx)
	r.cm.Broadcast(MsgClearBuzz, struct{}{}, sender, true)
	return nil
}

func (r *Router) handleStartTimer(_ context.Context, sender *Connection, env *Envelope) error {
	var p StartTimerPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad startTimer payload: %w", err)
	}
	// Countdown tracking lives on the clients; the core only relays the event.
	r.cm.Broadcast(MsgStartTimer, p, sender, true)
	return nil
}

func (r *Router) handleStopTimer(_ context.Context, sender *Connection, _ *Envelope) error {
	r.cm.Broadcast(MsgStopTimer, struct{}{}, sender, true)
	return nil
}

func (r *Router) handleAwardPoints(ctx context.Context, sender *Connection, env *Envelope) error {
	var p PointsPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad awardPoints payload: %w", err)
	}
	if r.app.AwardPoints(ctx, p.TeamName, p.Amount) {
		r.cm.Broadcast(MsgAwardPoints, p, sender, true)
	}
	return nil
}

func (r *Router) handleDeductPoints(ctx context.Context, sender *Connection, env *Envelope) error {
	var p PointsPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad deductPoints payload: %w", err)
	}
	if r.app.DeductPoints(ctx, p.TeamName, p.Amount) {
		r.cm.Broadcast(MsgDeductPoints, p, sender, true)
	}
	return nil
}

func (r *Router) handleSetShowCode(ctx context.Context, _ *Connection, env *Envelope) error {
	var p SetShowCodePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad setShowCode payload: %w", err)
	}
	r.app.SetShowCode(ctx, p.ShowCode)
	return nil
}

func (r *Router) handleRemoveTeam(ctx context.Context, _ *Connection, env *Envelope) error {
	var p RemoveTeamPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return fmt.Errorf("bad removeTeam payload: %w", err)
	}
	r.app.RemoveTeam(ctx, p.TeamName)
	return nil
}

func (r *Router) handleIncrementCount(_ context.Context, _ *Connection, _ *Envelope) error {
	r.app.IncrementCount()
	return nil
}
