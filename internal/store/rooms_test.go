package store_test

import (
	"context"
	"errors"
	"testing"

	"game-parlor/internal/store"
	"game-parlor/internal/testutil"
)

func TestRoomPersistence(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	r := &store.Room{Name: "High stakes", GameType: "poker", HostID: "u1", BetRoom: true, BetAmount: 500}
	if err := st.CreateRoom(ctx, r); err != nil {
		t.Fatalf("create room: %v", err)
	}
	got, err := st.GetRoom(ctx, r.ID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Status != "waiting" || !got.BetRoom || got.BetAmount != 500 {
		t.Fatalf("room = %+v", got)
	}

	if err := st.UpdateRoomStatus(ctx, r.ID, "playing"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	active, err := st.ListActiveRooms(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != r.ID {
		t.Fatalf("active rooms = %+v", active)
	}

	if err := st.UpdateRoomStatus(ctx, r.ID, "ended"); err != nil {
		t.Fatalf("end room: %v", err)
	}
	got, _ = st.GetRoom(ctx, r.ID)
	if got.EndedAt == nil {
		t.Fatalf("ended room has no ended_at")
	}
	active, _ = st.ListActiveRooms(ctx)
	if len(active) != 0 {
		t.Fatalf("ended room still listed")
	}

	if err := st.UpdateRoomStatus(ctx, "missing", "ended"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing room err = %v", err)
	}
}

func TestSystemSettings(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := st.GetSetting(ctx, "turn_timeout"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing setting err = %v", err)
	}
	if err := st.SetSetting(ctx, "turn_timeout", "45"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.SetSetting(ctx, "turn_timeout", "60"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, err := st.GetSetting(ctx, "turn_timeout")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v != "60" {
		t.Fatalf("value = %q, want 60", v)
	}
	all, err := st.AllSettings(ctx)
	if err != nil || all["turn_timeout"] != "60" {
		t.Fatalf("all settings = %v err = %v", all, err)
	}
}
