package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"game-parlor/internal/config"
	"game-parlor/internal/game"
	"game-parlor/internal/store"
)

// Manager owns the live room registry. Persistence of room rows is
// write-through; the in-memory registry is the source of truth for
// anything still running.
type Manager struct {
	deps Deps

	turnTimeout  time.Duration
	afkWarnTurns int
	afkGrace     time.Duration

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewManager(deps Deps, cfg config.ServerConfig) *Manager {
	return &Manager{
		deps:         deps,
		turnTimeout:  time.Duration(cfg.TurnTimeoutSecs) * time.Second,
		afkWarnTurns: cfg.AFKWarnTurns,
		afkGrace:     time.Duration(cfg.AFKGraceSecs) * time.Second,
		rooms:        map[string]*Room{},
	}
}

// Create persists and registers a new room. The host is seated
// immediately, which also takes their escrow on bet rooms.
func (m *Manager) Create(ctx context.Context, opts Options, hostName string) (*Room, error) {
	switch opts.GameType {
	case game.TypeKniffel, game.TypeBlackjack, game.TypeRoulette, game.TypePoker:
	default:
		return nil, ErrUnknownGameType
	}
	opts.normalize()
	opts.TurnTimeout = m.turnTimeout
	opts.AFKWarnTurns = m.afkWarnTurns
	opts.AFKGrace = m.afkGrace

	row := &store.Room{
		ID:        store.NewID(),
		Name:      opts.Name,
		GameType:  string(opts.GameType),
		HostID:    opts.HostID,
		Status:    StatusWaiting,
		BetRoom:   opts.BetRoom,
		BetAmount: opts.BetAmount,
	}
	if err := m.deps.Rooms.CreateRoom(ctx, row); err != nil {
		return nil, err
	}

	r := newRoom(row.ID, opts, m.deps)
	go r.run()
	if err := r.Join(ctx, opts.HostID, hostName); err != nil {
		r.shutdown(ctx)
		return nil, err
	}

	m.mu.Lock()
	m.rooms[r.ID] = r
	m.mu.Unlock()
	metricRoomsCreated.Add(1)
	return r, nil
}

func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	if r.Status() == StatusEnded {
		m.forget(id)
		return nil, false
	}
	return r, true
}

// List returns the live rooms sorted by id, pruning any that ended
// since the last call.
func (m *Manager) List() []*Room {
	m.mu.Lock()
	all := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		all = append(all, r)
	}
	m.mu.Unlock()

	out := all[:0]
	for _, r := range all {
		if r.Status() == StatusEnded {
			m.forget(r.ID)
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.rooms, id)
	m.mu.Unlock()
}

// Shutdown closes every room, refunding pending escrows.
func (m *Manager) Shutdown(ctx context.Context) {
	for _, r := range m.List() {
		r.shutdown(ctx)
	}
}

// shutdown closes the room from outside the loop.
func (r *Room) shutdown(ctx context.Context) {
	_ = r.do(func() { r.close(ctx) })
}
