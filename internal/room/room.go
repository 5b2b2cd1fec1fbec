// Package room owns one table's lifecycle: it serializes every action
// through a single loop, drives the game state machine, runs the turn
// timer and AFK monitor, and bridges settlement to the wallet ledger
// before anything is broadcast.
package room

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"game-parlor/internal/game"
	"game-parlor/internal/store"
)

const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"
	StatusEnded   = "ended"
)

// Sink receives everything a room emits. The transport (websocket hub)
// implements it; rooms never see a socket.
type Sink interface {
	// StateUpdate carries the personalized snapshot for one recipient.
	StateUpdate(roomID, userID string, payload any)
	// RoomEvent goes to every player and spectator in the room.
	RoomEvent(roomID, event string, payload any)
	// UserEvent goes to one user's private channel.
	UserEvent(userID, event string, payload any)
}

type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Player struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Ready         bool   `json:"ready"`
	escrowID      string
	inactiveTurns int
	warnedAt      *time.Time
	abandoned     bool
}

type Room struct {
	ID   string
	opts Options

	status     string
	players    []*Player
	spectators map[string]bool

	machine game.Machine
	state   game.State

	// committed tracks per-round wagers accepted so far, used to
	// pre-check balances for house-banked games.
	committed map[string]int64
	rounds    int

	cmds     chan func()
	closed   chan struct{}
	timerGen int
	timer    *quartz.Timer

	clock quartz.Clock
	ldg   Bank
	st    RoomStore
	sink  Sink
	log   zerolog.Logger
}

func newRoom(id string, opts Options, deps Deps) *Room {
	return &Room{
		ID:         id,
		opts:       opts,
		status:     StatusWaiting,
		spectators: map[string]bool{},
		committed:  map[string]int64{},
		cmds:       make(chan func(), 32),
		closed:     make(chan struct{}),
		clock:      deps.Clock,
		ldg:        deps.Bank,
		st:         deps.Rooms,
		sink:       deps.Sink,
		log:        deps.Log.With().Str("room_id", id).Str("game", string(opts.GameType)).Logger(),
	}
}

// run applies commands one at a time. All room state lives on this
// goroutine; the public methods below only post closures.
func (r *Room) run() {
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.closed:
			return
		}
	}
}

// do posts fn to the room loop and waits for it to run.
func (r *Room) do(fn func()) error {
	done := make(chan struct{})
	select {
	case r.cmds <- func() { fn(); close(done) }:
	case <-r.closed:
		return ErrRoomClosed
	}
	select {
	case <-done:
		return nil
	case <-r.closed:
		return ErrRoomClosed
	}
}

var (
	ErrRoomClosed      = errors.New("room_closed")
	ErrRoomFull        = errors.New("room_full")
	ErrRoomStarted     = errors.New("room_already_started")
	ErrNotInRoom       = errors.New("not_in_room")
	ErrAlreadyIn       = errors.New("already_in_room")
	ErrNotHost         = errors.New("not_host")
	ErrTooFew          = errors.New("not_enough_players")
	ErrUnknownGameType = errors.New("unknown_game_type")
)

func (r *Room) Join(ctx context.Context, userID, name string) error {
	var out error
	err := r.do(func() {
		if r.status != StatusWaiting {
			out = ErrRoomStarted
			return
		}
		if len(r.players) >= r.opts.MaxPlayers {
			out = ErrRoomFull
			return
		}
		if r.findPlayer(userID) != nil {
			out = ErrAlreadyIn
			return
		}
		p := &Player{UserID: userID, Name: name}
		if r.opts.BetRoom {
			esc, err := r.ldg.EscrowBuyIn(ctx, r.ID, userID, r.opts.BetAmount)
			if err != nil {
				out = err
				return
			}
			p.escrowID = esc.ID
			r.pushBalance(ctx, userID, -r.opts.BetAmount, "bet room buy-in")
		}
		r.players = append(r.players, p)
		r.sink.RoomEvent(r.ID, "room:player-joined", map[string]any{"user_id": userID, "name": name})
	})
	if err != nil {
		return err
	}
	return out
}

func (r *Room) Spectate(userID string) error {
	return r.do(func() {
		r.spectators[userID] = true
	})
}

// Leave refunds a waiting player's pending escrow; leaving a game in
// progress forfeits the stake.
func (r *Room) Leave(ctx context.Context, userID string) error {
	var out error
	err := r.do(func() {
		p := r.findPlayer(userID)
		if p == nil {
			delete(r.spectators, userID)
			return
		}
		switch r.status {
		case StatusWaiting:
			if p.escrowID != "" {
				if _, err := r.ldg.ReleaseEscrow(ctx, p.escrowID, r.opts.BetAmount); err != nil {
					out = err
					return
				}
				r.pushBalance(ctx, userID, r.opts.BetAmount, "buy-in refunded")
			}
			r.removePlayer(userID)
			r.sink.RoomEvent(r.ID, "room:player-left", map[string]any{"user_id": userID})
			if len(r.players) == 0 || userID == r.opts.HostID {
				r.close(ctx)
			}
		case StatusPlaying:
			r.abandon(ctx, p, "left the game")
		}
	})
	if err != nil {
		return err
	}
	return out
}

// Ready flags a seated player as ready in the lobby. The host still
// decides when to start; the flag is broadcast for the room roster.
func (r *Room) Ready(userID string, ready bool) error {
	var out error
	err := r.do(func() {
		if r.status != StatusWaiting {
			out = ErrRoomStarted
			return
		}
		p := r.findPlayer(userID)
		if p == nil {
			out = ErrNotInRoom
			return
		}
		p.Ready = ready
		r.sink.RoomEvent(r.ID, "room:player-ready", map[string]any{"user_id": userID, "ready": ready})
	})
	if err != nil {
		return err
	}
	return out
}

// Kick removes a seated player before the game starts, refunding any
// pending buy-in. Host only.
func (r *Room) Kick(ctx context.Context, hostID, targetID string) error {
	var out error
	err := r.do(func() {
		if r.status != StatusWaiting {
			out = ErrRoomStarted
			return
		}
		if hostID != r.opts.HostID {
			out = ErrNotHost
			return
		}
		p := r.findPlayer(targetID)
		if p == nil || targetID == r.opts.HostID {
			out = ErrNotInRoom
			return
		}
		if p.escrowID != "" {
			if _, err := r.ldg.ReleaseEscrow(ctx, p.escrowID, r.opts.BetAmount); err != nil {
				out = err
				return
			}
			r.pushBalance(ctx, targetID, r.opts.BetAmount, "buy-in refunded")
		}
		r.removePlayer(targetID)
		r.sink.RoomEvent(r.ID, "room:player-kicked", map[string]any{"user_id": targetID})
		r.sink.UserEvent(targetID, "room:kicked", map[string]any{"room_id": r.ID})
	})
	if err != nil {
		return err
	}
	return out
}

// Start locks every buy-in and deals the opening state.
func (r *Room) Start(ctx context.Context, userID string) error {
	var out error
	err := r.do(func() {
		if r.status != StatusWaiting {
			out = ErrRoomStarted
			return
		}
		if userID != r.opts.HostID {
			out = ErrNotHost
			return
		}
		if len(r.players) < minPlayers(r.opts.GameType) {
			out = ErrTooFew
			return
		}
		machine, state, err := buildGame(r.opts, r.roster())
		if err != nil {
			out = err
			return
		}
		// Games that open in a lobby phase are dealt in before any
		// money is locked; a failed deal leaves the room joinable.
		prev := state.Phase()
		if prev == "waiting" {
			dealt, err := machine.Apply(state, game.Action{Kind: "start"}, r.opts.HostID)
			if err != nil {
				out = err
				return
			}
			state = dealt
		}
		if r.opts.BetRoom {
			for _, p := range r.players {
				if _, err := r.ldg.LockEscrow(ctx, p.escrowID); err != nil {
					out = err
					return
				}
			}
		}
		r.machine = machine
		r.state = state
		r.status = StatusPlaying
		if err := r.st.UpdateRoomStatus(ctx, r.ID, StatusPlaying); err != nil {
			r.log.Error().Err(err).Msg("persist room status")
		}
		r.log.Info().Int("players", len(r.players)).Msg("game_start")
		metricGamesStarted.Add(1)
		r.afterApply(ctx, prev)
	})
	if err != nil {
		return err
	}
	return out
}

// HandleAction validates and applies one player action, then drives
// any settlement the new phase requires.
func (r *Room) HandleAction(ctx context.Context, userID string, a game.Action) ActionResult {
	var res ActionResult
	err := r.do(func() {
		res = r.apply(ctx, userID, a, false)
	})
	if err != nil {
		return ActionResult{Success: false, Error: ErrRoomClosed.Error()}
	}
	return res
}

// apply runs on the room loop.
func (r *Room) apply(ctx context.Context, userID string, a game.Action, forced bool) ActionResult {
	if r.status != StatusPlaying || r.state == nil {
		return ActionResult{Success: false, Error: "room_not_playing"}
	}
	if !forced {
		if p := r.findPlayer(userID); p == nil {
			return ActionResult{Success: false, Error: game.ErrUnknownPlayer.Error()}
		}
		if err := r.precheckFunds(ctx, userID, a); err != nil {
			return ActionResult{Success: false, Error: err.Error()}
		}
	}
	prev := r.state.Phase()
	next, err := r.machine.Apply(r.state, a, userID)
	if err != nil {
		return ActionResult{Success: false, Error: err.Error()}
	}
	r.state = next
	metricActionsApplied.Add(1)
	r.noteWager(userID, a)
	if !forced {
		r.markActive(userID)
	}
	r.afterApply(ctx, prev)
	return ActionResult{Success: true}
}

// precheckFunds rejects house-banked wagers the wallet cannot cover.
// The authoritative debit happens at settlement; this check keeps a
// player from betting chips they do not have.
func (r *Room) precheckFunds(ctx context.Context, userID string, a game.Action) error {
	if r.opts.BetRoom || !houseBanked(r.opts.GameType) {
		return nil
	}
	add, ok := r.wagerDelta(userID, a)
	if !ok {
		return nil
	}
	bal, err := r.ldg.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if bal < r.committed[userID]+add {
		return store.ErrInsufficientBalance
	}
	return nil
}

// wagerDelta estimates how much a money action adds to the player's
// round commitment.
func (r *Room) wagerDelta(userID string, a game.Action) (int64, bool) {
	switch a.Kind {
	case "bet", "place_bet":
		return a.Amount, true
	case "double", "split":
		return r.committed[userID], true
	case "insurance":
		return r.committed[userID] / 2, true
	}
	return 0, false
}

func (r *Room) noteWager(userID string, a game.Action) {
	if add, ok := r.wagerDelta(userID, a); ok {
		r.committed[userID] += add
	}
}

// afterApply drains automatic phases, settles finished rounds or games
// and rebroadcasts. Runs after every accepted action, forced or not.
func (r *Room) afterApply(ctx context.Context, prev game.Phase) {
	r.drainAdvances(ctx)
	if r.status != StatusPlaying {
		return
	}
	r.emitTransitionEvents(prev, r.state.Phase())
	r.settleIfDue(ctx)
	if r.status == StatusPlaying {
		r.broadcastState()
		r.scheduleTurn()
	}
}

// drainAdvances runs dealer draws, wheel spins and board runouts.
func (r *Room) drainAdvances(ctx context.Context) {
	for i := 0; i < 32; i++ {
		adv, ok := r.state.(game.AutoAdvancer)
		if !ok || !adv.NeedsAdvance() {
			return
		}
		before := r.state.Phase()
		next, err := r.machine.Apply(r.state, game.Action{Kind: game.ActionAdvance}, "")
		if err != nil {
			r.log.Error().Err(err).Str("phase", string(before)).Msg("auto advance failed")
			return
		}
		r.state = next
	}
	r.log.Error().Msg("advance loop did not converge, closing room")
	r.close(ctx)
}

func (r *Room) findPlayer(userID string) *Player {
	for _, p := range r.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayer(userID string) {
	for i, p := range r.players {
		if p.UserID == userID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			return
		}
	}
}

func (r *Room) roster() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.players))
	for _, p := range r.players {
		if p.abandoned {
			continue
		}
		out = append(out, RosterEntry{UserID: p.UserID, Name: p.Name})
	}
	return out
}

// markActive resets the AFK bookkeeping; a legitimate action cancels a
// pending warning.
func (r *Room) markActive(userID string) {
	p := r.findPlayer(userID)
	if p == nil {
		return
	}
	p.inactiveTurns = 0
	if p.warnedAt != nil {
		p.warnedAt = nil
		r.sink.UserEvent(userID, "afk:cleared", map[string]any{"room_id": r.ID})
	}
}

func (r *Room) pushBalance(ctx context.Context, userID string, change int64, why string) {
	bal, err := r.ldg.Balance(ctx, userID)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("read balance")
		return
	}
	r.sink.UserEvent(userID, "balance:updated", map[string]any{
		"new_balance": bal,
		"change":      change,
		"description": why,
	})
}

func (r *Room) close(ctx context.Context) {
	if r.status == StatusEnded {
		return
	}
	// Refund anything still pending.
	if r.status == StatusWaiting && r.opts.BetRoom {
		for _, p := range r.players {
			if p.escrowID == "" {
				continue
			}
			if _, err := r.ldg.ReleaseEscrow(ctx, p.escrowID, r.opts.BetAmount); err != nil {
				r.log.Error().Err(err).Str("user_id", p.UserID).Msg("refund on close")
			}
		}
	}
	r.status = StatusEnded
	r.stopTimer()
	if err := r.st.UpdateRoomStatus(ctx, r.ID, StatusEnded); err != nil {
		r.log.Error().Err(err).Msg("persist room status")
	}
	r.sink.RoomEvent(r.ID, "room:closed", map[string]any{"room_id": r.ID})
	metricRoomsClosed.Add(1)
	close(r.closed)
}

// GameType and Options are fixed at creation and safe to read from
// any goroutine.
func (r *Room) GameType() game.Type { return r.opts.GameType }

func (r *Room) Options() Options { return r.opts }

// Status is read through the loop so callers never observe a torn
// update.
func (r *Room) Status() string {
	var status string
	if err := r.do(func() { status = r.status }); err != nil {
		return StatusEnded
	}
	return status
}

func (r *Room) Players() []Player {
	var out []Player
	_ = r.do(func() {
		for _, p := range r.players {
			out = append(out, *p)
		}
	})
	return out
}
