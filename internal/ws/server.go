// Package ws is the realtime transport: one websocket per user, a
// hello handshake that provisions the wallet, then room commands and
// game actions answered with {success, error?} acks. The hub fans
// room broadcasts out to subscribed connections and is the room
// package's Sink.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"game-parlor/internal/game"
	"game-parlor/internal/ledger"
	"game-parlor/internal/room"
)

// Accounts provisions wallets on connect. *ledger.Ledger satisfies it.
type Accounts interface {
	Register(ctx context.Context, userID, name string, initialGrant int64) error
	Balance(ctx context.Context, userID string) (int64, error)
}

var _ Accounts = (*ledger.Ledger)(nil)

type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	userID string
	name   string
}

type Server struct {
	rooms  *room.Manager
	ledger Accounts
	grant  int64

	upgrader websocket.Upgrader

	mu     sync.Mutex
	byUser map[string]*Client
	subs   map[string]map[*Client]bool
}

func NewServer(mgr *room.Manager, ldg Accounts, initialGrant int64) *Server {
	return &Server{
		rooms:    mgr,
		ledger:   ldg,
		grant:    initialGrant,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		byUser:   map[string]*Client{},
		subs:     map[string]map[*Client]bool{},
	}
}

// SetManager breaks the construction cycle: the manager needs the hub
// as its sink and the hub needs the manager for room lookups.
func (s *Server) SetManager(mgr *room.Manager) { s.rooms = mgr }

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 32)}
	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base baseMessage
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		if base.Type == "hello" {
			s.handleHello(c, msg)
			continue
		}
		if c.userID == "" {
			s.sendAck(c, base.ReqID, false, "not_authenticated", "")
			continue
		}
		switch {
		case base.Type == "room:create":
			s.handleCreate(c, msg)
		case base.Type == "room:join":
			s.handleRoomCmd(c, msg, s.doJoin)
		case base.Type == "room:leave":
			s.handleRoomCmd(c, msg, s.doLeave)
		case base.Type == "room:spectate":
			s.handleRoomCmd(c, msg, s.doSpectate)
		case base.Type == "room:ready":
			s.handleRoomCmd(c, msg, s.doReady(true))
		case base.Type == "room:unready":
			s.handleRoomCmd(c, msg, s.doReady(false))
		case base.Type == "room:kick":
			s.handleKick(c, msg)
		case base.Type == "room:start":
			s.handleRoomCmd(c, msg, s.doStart)
		case base.Type == "chat:message":
			s.handleChat(c, msg)
		case strings.HasSuffix(base.Type, ":action"):
			s.handleAction(c, msg)
		default:
			s.sendAck(c, base.ReqID, false, "unknown_message_type", "")
		}
	}
}

func (s *Server) handleHello(c *Client, msg []byte) {
	var hello helloMessage
	if err := json.Unmarshal(msg, &hello); err != nil || hello.UserID == "" {
		s.sendAck(c, hello.ReqID, false, "invalid_hello", "")
		return
	}
	ctx, cancel := opCtx()
	defer cancel()
	if err := s.ledger.Register(ctx, hello.UserID, hello.Name, s.grant); err != nil {
		log.Error().Err(err).Str("user_id", hello.UserID).Msg("register failed")
		s.sendAck(c, hello.ReqID, false, "internal_error", "")
		return
	}
	c.userID = hello.UserID
	c.name = hello.Name

	s.mu.Lock()
	if old := s.byUser[c.userID]; old != nil && old != c {
		// A reconnect supersedes the previous socket.
		s.dropLocked(old)
	}
	s.byUser[c.userID] = c
	s.mu.Unlock()

	s.sendAck(c, hello.ReqID, true, "", "")
	bal, err := s.ledger.Balance(ctx, c.userID)
	if err == nil {
		s.UserEvent(c.userID, "balance:updated", map[string]any{
			"new_balance": bal,
			"change":      int64(0),
			"description": "connected",
		})
	}
	metricConnects.Add(1)
}

func (s *Server) handleCreate(c *Client, msg []byte) {
	var m createRoomMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.sendAck(c, "", false, "invalid_message", "")
		return
	}
	ctx, cancel := opCtx()
	defer cancel()
	opts := room.Options{
		GameType:           game.Type(m.GameType),
		Name:               m.Name,
		HostID:             c.userID,
		MaxPlayers:         m.MaxPlayers,
		BetRoom:            m.BetRoom,
		BetAmount:          m.BetAmount,
		MinBet:             m.MinBet,
		MaxBet:             m.MaxBet,
		SmallBlind:         m.SmallBlind,
		BigBlind:           m.BigBlind,
		Columns:            m.Columns,
		TeamScoring:        m.TeamScoring,
		JokerCount:         m.JokerCount,
		DisabledCategories: m.DisabledCategories,
		Teams:              m.Teams,
	}
	r, err := s.rooms.Create(ctx, opts, c.name)
	if err != nil {
		s.sendAck(c, m.ReqID, false, mapError(err), "")
		return
	}
	s.subscribe(r.ID, c)
	s.sendAck(c, m.ReqID, true, "", r.ID)
}

type roomOp func(ctx context.Context, r *room.Room, c *Client) error

func (s *Server) handleRoomCmd(c *Client, msg []byte, op roomOp) {
	var m roomMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.sendAck(c, "", false, "invalid_message", "")
		return
	}
	r, ok := s.rooms.Get(m.RoomID)
	if !ok {
		s.sendAck(c, m.ReqID, false, "room_not_found", m.RoomID)
		return
	}
	ctx, cancel := opCtx()
	defer cancel()
	if err := op(ctx, r, c); err != nil {
		s.sendAck(c, m.ReqID, false, mapError(err), m.RoomID)
		return
	}
	s.sendAck(c, m.ReqID, true, "", m.RoomID)
}

func (s *Server) doJoin(ctx context.Context, r *room.Room, c *Client) error {
	if err := r.Join(ctx, c.userID, c.name); err != nil {
		return err
	}
	s.subscribe(r.ID, c)
	return nil
}

func (s *Server) doLeave(ctx context.Context, r *room.Room, c *Client) error {
	if err := r.Leave(ctx, c.userID); err != nil {
		return err
	}
	s.unsubscribe(r.ID, c)
	return nil
}

func (s *Server) doSpectate(_ context.Context, r *room.Room, c *Client) error {
	if err := r.Spectate(c.userID); err != nil {
		return err
	}
	s.subscribe(r.ID, c)
	return nil
}

func (s *Server) doReady(ready bool) roomOp {
	return func(_ context.Context, r *room.Room, c *Client) error {
		return r.Ready(c.userID, ready)
	}
}

func (s *Server) doStart(ctx context.Context, r *room.Room, c *Client) error {
	return r.Start(ctx, c.userID)
}

func (s *Server) handleKick(c *Client, msg []byte) {
	var m kickMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.sendAck(c, "", false, "invalid_message", "")
		return
	}
	r, ok := s.rooms.Get(m.RoomID)
	if !ok {
		s.sendAck(c, m.ReqID, false, "room_not_found", m.RoomID)
		return
	}
	ctx, cancel := opCtx()
	defer cancel()
	if err := r.Kick(ctx, c.userID, m.TargetID); err != nil {
		s.sendAck(c, m.ReqID, false, mapError(err), m.RoomID)
		return
	}
	s.mu.Lock()
	target := s.byUser[m.TargetID]
	s.mu.Unlock()
	if target != nil {
		s.unsubscribe(m.RoomID, target)
	}
	s.sendAck(c, m.ReqID, true, "", m.RoomID)
}

func (s *Server) handleAction(c *Client, msg []byte) {
	var m actionMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.sendAck(c, "", false, "invalid_message", "")
		return
	}
	r, ok := s.rooms.Get(m.RoomID)
	if !ok {
		s.sendAck(c, m.ReqID, false, "room_not_found", m.RoomID)
		return
	}
	prefix := strings.TrimSuffix(m.Type, ":action")
	if prefix != string(r.GameType()) {
		s.sendAck(c, m.ReqID, false, "wrong_game_type", m.RoomID)
		return
	}
	ctx, cancel := opCtx()
	defer cancel()
	res := r.HandleAction(ctx, c.userID, game.Action{
		Kind:     m.Action,
		Amount:   m.Amount,
		Keep:     m.Keep,
		Category: m.Category,
		Column:   m.Column,
		BetType:  m.BetType,
		Numbers:  m.Numbers,
		Hand:     m.Hand,
	})
	metricActions.Add(1)
	s.sendAck(c, m.ReqID, res.Success, res.Error, m.RoomID)
}

func (s *Server) handleChat(c *Client, msg []byte) {
	var m chatMessage
	if err := json.Unmarshal(msg, &m); err != nil || m.Text == "" {
		return
	}
	s.RoomEvent(m.RoomID, "chat:message", map[string]any{
		"user_id": c.userID,
		"name":    c.name,
		"text":    m.Text,
		"sent_at": time.Now().UnixMilli(),
	})
}

// StateUpdate implements room.Sink.
func (s *Server) StateUpdate(roomID, userID string, payload any) {
	s.sendToUser(userID, outbound{Type: "game:state-update", RoomID: roomID, Payload: payload})
}

// RoomEvent implements room.Sink.
func (s *Server) RoomEvent(roomID, event string, payload any) {
	msg, err := json.Marshal(outbound{Type: event, RoomID: roomID, Payload: payload})
	if err != nil {
		return
	}
	s.mu.Lock()
	for c := range s.subs[roomID] {
		safeSend(c.send, msg)
	}
	s.mu.Unlock()
	metricEventsSent.Add(1)
}

// UserEvent implements room.Sink.
func (s *Server) UserEvent(userID, event string, payload any) {
	s.sendToUser(userID, outbound{Type: event, Payload: payload})
}

func (s *Server) sendToUser(userID string, out outbound) {
	msg, err := json.Marshal(out)
	if err != nil {
		return
	}
	s.mu.Lock()
	c := s.byUser[userID]
	s.mu.Unlock()
	if c == nil {
		return
	}
	safeSend(c.send, msg)
	metricEventsSent.Add(1)
}

func (s *Server) subscribe(roomID string, c *Client) {
	s.mu.Lock()
	if s.subs[roomID] == nil {
		s.subs[roomID] = map[*Client]bool{}
	}
	s.subs[roomID][c] = true
	s.mu.Unlock()
}

func (s *Server) unsubscribe(roomID string, c *Client) {
	s.mu.Lock()
	delete(s.subs[roomID], c)
	s.mu.Unlock()
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	if c.userID != "" && s.byUser[c.userID] == c {
		delete(s.byUser, c.userID)
	}
	for _, clients := range s.subs {
		delete(clients, c)
	}
	s.mu.Unlock()
	safeClose(c.send)
	metricDisconnects.Add(1)
}

// dropLocked closes a superseded connection; caller holds s.mu.
// The old client keeps its userID; unregister only removes the
// byUser entry when it still points at that client.
func (s *Server) dropLocked(old *Client) {
	for _, clients := range s.subs {
		delete(clients, old)
	}
	safeClose(old.send)
	_ = old.conn.Close()
}

func (s *Server) sendAck(c *Client, reqID string, success bool, errCode, roomID string) {
	msg, _ := json.Marshal(ack{Type: "ack", ReqID: reqID, Success: success, Error: errCode, RoomID: roomID})
	safeSend(c.send, msg)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() { _ = recover() }()
	select {
	case ch <- msg:
	default:
		// Slow consumer: drop rather than stall the room loop.
		metricEventsDropped.Add(1)
	}
}

func safeClose(ch chan []byte) {
	defer func() { _ = recover() }()
	close(ch)
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}
