package room

import (
	"context"
	"time"

	"game-parlor/internal/game"
	"game-parlor/internal/game/holdem"
	"game-parlor/internal/game/roulette"
)

// settleIfDue moves money once the state machine says a round or game
// is finished. House-banked tables settle against the bank and deal a
// fresh round; pot games release escrows and close the room.
func (r *Room) settleIfDue(ctx context.Context) {
	st, ok := r.state.(game.Settler)
	if !ok || !st.Settled() {
		return
	}
	if houseBanked(r.opts.GameType) {
		r.settleRound(ctx, st)
		return
	}
	r.finishGame(ctx, st)
}

// settleRound applies one blackjack or roulette round against the
// bank: wagers are debited, winnings credited, then a new round is
// dealt for whoever is still seated.
func (r *Room) settleRound(ctx context.Context, st game.Settler) {
	wagered := map[string]int64{}
	if w, ok := r.state.(game.Wagerer); ok {
		wagered = w.Wagered()
	}
	payouts := make(map[string]int64, len(st.Payouts()))
	for userID, amount := range st.Payouts() {
		payouts[userID] = amount
	}
	for userID, amount := range wagered {
		if amount <= 0 {
			continue
		}
		if _, _, err := r.ldg.DebitBet(ctx, userID, r.ID, amount); err != nil {
			// Funds were pre-checked at bet time; a failure here means
			// the balance moved mid-round. The wager stands as far as
			// the game went, the wallet just cannot cover it.
			r.log.Error().Err(err).Str("user_id", userID).Int64("amount", amount).Msg("wager debit failed")
			delete(payouts, userID)
		}
	}
	for userID, amount := range payouts {
		if amount <= 0 {
			continue
		}
		if _, _, err := r.ldg.CreditPayout(ctx, userID, r.ID, amount); err != nil {
			r.log.Error().Err(err).Str("user_id", userID).Int64("amount", amount).Msg("payout credit failed")
		}
	}
	for userID := range wagered {
		r.pushBalance(ctx, userID, payouts[userID]-wagered[userID], "round settled")
	}
	r.sink.RoomEvent(r.ID, "game:round-settled", map[string]any{
		"wagered": wagered,
		"payouts": payouts,
	})
	metricRoundsSettled.Add(1)
	r.committed = map[string]int64{}
	r.nextRound(ctx)
}

func (r *Room) nextRound(ctx context.Context) {
	roster := r.roster()
	if len(roster) < minPlayers(r.opts.GameType) {
		r.close(ctx)
		return
	}
	opts := r.opts
	if opts.Seed != 0 {
		// A pinned seed still has to vary between rounds or every
		// shuffle repeats.
		r.rounds++
		opts.Seed += int64(r.rounds)
	}
	machine, state, err := buildGame(opts, roster)
	if err != nil {
		r.log.Error().Err(err).Msg("next round deal failed")
		r.close(ctx)
		return
	}
	r.machine = machine
	r.state = state
}

// finishGame pays out a completed pot game. Each surviving player's
// locked escrow is released at their final payout; abandoned players
// were forfeited when they went dark.
func (r *Room) finishGame(ctx context.Context, st game.Settler) {
	payouts := st.Payouts()
	if r.opts.BetRoom {
		for _, p := range r.players {
			if p.abandoned || p.escrowID == "" {
				continue
			}
			if _, err := r.ldg.ReleaseEscrow(ctx, p.escrowID, payouts[p.UserID]); err != nil {
				r.log.Error().Err(err).Str("user_id", p.UserID).Msg("escrow release failed")
				continue
			}
			r.pushBalance(ctx, p.UserID, payouts[p.UserID], "game winnings")
		}
	}
	r.broadcastState()
	r.sink.RoomEvent(r.ID, "game:ended", map[string]any{"payouts": payouts})
	metricGamesSettled.Add(1)
	r.close(ctx)
}

// endEarly closes a pot game that lost too many players to continue.
// Survivors get their own stake back; forfeited stakes stay burned.
func (r *Room) endEarly(ctx context.Context, reason string) {
	if r.opts.BetRoom {
		for _, p := range r.players {
			if p.abandoned || p.escrowID == "" {
				continue
			}
			if _, err := r.ldg.ReleaseEscrow(ctx, p.escrowID, r.opts.BetAmount); err != nil {
				r.log.Error().Err(err).Str("user_id", p.UserID).Msg("escrow refund failed")
				continue
			}
			r.pushBalance(ctx, p.UserID, r.opts.BetAmount, "stake refunded")
		}
	}
	r.sink.RoomEvent(r.ID, "game:ended", map[string]any{"reason": reason})
	r.close(ctx)
}

// abandon forfeits a player who left or went dark mid-game. Their
// escrow is burned and they are dropped from future rounds; the state
// machine keeps folding for them until the current round resolves.
func (r *Room) abandon(ctx context.Context, p *Player, reason string) {
	if p.abandoned {
		return
	}
	p.abandoned = true
	if r.opts.BetRoom && p.escrowID != "" {
		if _, err := r.ldg.ForfeitEscrow(ctx, p.escrowID); err != nil {
			r.log.Error().Err(err).Str("user_id", p.UserID).Msg("escrow forfeit failed")
		}
	}
	r.log.Warn().Str("user_id", p.UserID).Str("reason", reason).Msg("player_abandoned")
	r.sink.RoomEvent(r.ID, "room:player-abandoned", map[string]any{
		"user_id": p.UserID,
		"reason":  reason,
	})
	metricPlayersAbandoned.Add(1)
	if !houseBanked(r.opts.GameType) && len(r.roster()) < minPlayers(r.opts.GameType) {
		r.endEarly(ctx, "too_many_players_abandoned")
	}
}

// emitTransitionEvents publishes the reveal moments a phase change
// produces, beyond the plain state broadcast.
func (r *Room) emitTransitionEvents(prev, now game.Phase) {
	if prev == now {
		return
	}
	switch r.opts.GameType {
	case game.TypeRoulette:
		if now == roulette.PhaseSettlement {
			s := r.state.(*roulette.State)
			r.sink.RoomEvent(r.ID, "roulette:spin-result", map[string]any{
				"winning_number": s.WinningNumber(),
				"payouts":        s.Payouts(),
			})
		}
	case game.TypePoker:
		if now == holdem.PhaseHandEnd || now == holdem.PhaseGameEnd {
			s := r.state.(*holdem.State)
			r.sink.RoomEvent(r.ID, "poker:showdown", map[string]any{
				"pots": s.HandPots(),
			})
		}
	}
}

// broadcastState sends each viewer their personalized snapshot.
// Spectators get the public view.
func (r *Room) broadcastState() {
	if r.state == nil {
		return
	}
	envelope := func(view any) map[string]any {
		return map[string]any{
			"room_id": r.ID,
			"game":    r.opts.GameType,
			"phase":   r.state.Phase(),
			"state":   view,
		}
	}
	for _, p := range r.players {
		if p.abandoned {
			continue
		}
		r.sink.StateUpdate(r.ID, p.UserID, envelope(r.state.View(p.UserID)))
	}
	if len(r.spectators) > 0 {
		public := envelope(r.state.View(""))
		for userID := range r.spectators {
			r.sink.StateUpdate(r.ID, userID, public)
		}
	}
}

// scheduleTurn arms the turn clock for the current actor, or the
// betting window when no single player is on the clock. Stale timers
// are fenced by generation so a fire after reschedule is a no-op.
func (r *Room) scheduleTurn() {
	r.stopTimer()
	if r.status != StatusPlaying || r.opts.TurnTimeout <= 0 {
		return
	}
	if !r.turnTimed() {
		return
	}
	r.timerGen++
	gen := r.timerGen
	r.timer = r.clock.AfterFunc(r.opts.TurnTimeout, func() {
		select {
		case r.cmds <- func() { r.onTimeout(gen) }:
		case <-r.closed:
		}
	})
}

func (r *Room) turnTimed() bool {
	if r.state == nil {
		return false
	}
	if r.state.ActorID() != "" {
		return true
	}
	// Roulette's betting window is shared; the timer closes it.
	return r.opts.GameType == game.TypeRoulette && r.state.Phase() == roulette.PhaseBetting
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// onTimeout injects the machine's default action for the stalled
// actor and advances the AFK escalation.
func (r *Room) onTimeout(gen int) {
	if gen != r.timerGen || r.status != StatusPlaying {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	actorID := r.state.ActorID()
	if actorID != "" {
		if p := r.findPlayer(actorID); p != nil {
			r.noteTimeout(ctx, p)
			if r.status != StatusPlaying {
				return
			}
		}
	}
	metricTurnTimeouts.Add(1)
	a := r.machine.DefaultAction(r.state)
	if actorID != "" {
		r.sink.RoomEvent(r.ID, "room:action-forced", map[string]any{"user_id": actorID, "action": a.Kind})
	}
	if res := r.apply(ctx, actorID, a, true); !res.Success {
		r.log.Error().Str("error", res.Error).Str("actor", actorID).Msg("timeout action rejected")
		r.scheduleTurn()
	}
}

// noteTimeout escalates one missed turn: warn after AFKWarnTurns
// misses, forfeit once the grace window after the warning passes
// without a real action.
func (r *Room) noteTimeout(ctx context.Context, p *Player) {
	p.inactiveTurns++
	now := r.clock.Now()
	if p.warnedAt != nil {
		if now.Sub(*p.warnedAt) >= r.opts.AFKGrace {
			r.abandon(ctx, p, "inactivity")
		}
		return
	}
	if p.inactiveTurns >= r.opts.AFKWarnTurns {
		p.warnedAt = &now
		r.sink.UserEvent(p.UserID, "afk:warning", map[string]any{
			"room_id":       r.ID,
			"grace_seconds": int(r.opts.AFKGrace / time.Second),
		})
	}
}
