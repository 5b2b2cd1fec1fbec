package room

import (
	"context"
	"errors"
	"testing"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"game-parlor/internal/config"
	"game-parlor/internal/game"
)

func newManagerFixture(t *testing.T) (*Manager, *fakeBank, *fakeRooms) {
	t.Helper()
	bank := newFakeBank()
	rooms := newFakeRooms()
	deps := Deps{
		Clock: quartz.NewMock(t),
		Bank:  bank,
		Rooms: rooms,
		Sink:  &recordSink{},
		Log:   zerolog.Nop(),
	}
	cfg := config.ServerConfig{TurnTimeoutSecs: 30, AFKWarnTurns: 2, AFKGraceSecs: 60}
	m := NewManager(deps, cfg)
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m, bank, rooms
}

func TestManagerCreateSeatsHost(t *testing.T) {
	m, bank, rooms := newManagerFixture(t)
	bank.setBalance("ann", 1000)

	r, err := m.Create(context.Background(), Options{
		GameType:  game.TypeKniffel,
		Name:      "dice",
		HostID:    "ann",
		BetRoom:   true,
		BetAmount: 200,
	}, "Ann")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := len(r.Players()); got != 1 {
		t.Fatalf("players = %d, want host only", got)
	}
	if got := bank.balance("ann"); got != 800 {
		t.Fatalf("host balance = %d, escrow not taken", got)
	}
	if len(rooms.created) != 1 || rooms.created[0].GameType != "kniffel" {
		t.Fatalf("persisted rooms = %+v", rooms.created)
	}
}

func TestManagerRejectsUnknownGame(t *testing.T) {
	m, _, _ := newManagerFixture(t)
	if _, err := m.Create(context.Background(), Options{GameType: "go-fish", HostID: "ann"}, "Ann"); !errors.Is(err, ErrUnknownGameType) {
		t.Fatalf("expected ErrUnknownGameType, got %v", err)
	}
}

func TestManagerCreateRollsBackOnBrokeHost(t *testing.T) {
	m, bank, _ := newManagerFixture(t)
	bank.setBalance("ann", 50)

	_, err := m.Create(context.Background(), Options{
		GameType:  game.TypeKniffel,
		HostID:    "ann",
		BetRoom:   true,
		BetAmount: 200,
	}, "Ann")
	if err == nil {
		t.Fatal("expected create to fail when the host cannot cover the stake")
	}
	if got := len(m.List()); got != 0 {
		t.Fatalf("live rooms = %d, want 0", got)
	}
}

func TestManagerPrunesEndedRooms(t *testing.T) {
	m, bank, _ := newManagerFixture(t)
	bank.setBalance("ann", 1000)

	r, err := m.Create(context.Background(), Options{GameType: game.TypeRoulette, HostID: "ann"}, "Ann")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := m.Get(r.ID); !ok {
		t.Fatal("room should be visible while live")
	}
	r.shutdown(context.Background())
	if _, ok := m.Get(r.ID); ok {
		t.Fatal("ended room should be pruned")
	}
	if got := len(m.List()); got != 0 {
		t.Fatalf("live rooms = %d, want 0", got)
	}
}
