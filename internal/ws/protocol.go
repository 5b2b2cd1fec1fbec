package ws

// Wire protocol. Every inbound frame carries a type; frames that
// expect an ack carry a client-chosen req_id echoed back.

type baseMessage struct {
	Type  string `json:"type"`
	ReqID string `json:"req_id,omitempty"`
}

type helloMessage struct {
	Type   string `json:"type"`
	ReqID  string `json:"req_id,omitempty"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type createRoomMessage struct {
	Type       string `json:"type"`
	ReqID      string `json:"req_id,omitempty"`
	Name       string `json:"name"`
	GameType   string `json:"game_type"`
	MaxPlayers int    `json:"max_players,omitempty"`
	BetRoom    bool   `json:"bet_room,omitempty"`
	BetAmount  int64  `json:"bet_amount,omitempty"`
	MinBet     int64  `json:"min_bet,omitempty"`
	MaxBet     int64  `json:"max_bet,omitempty"`
	SmallBlind int64  `json:"small_blind,omitempty"`
	BigBlind   int64  `json:"big_blind,omitempty"`

	Columns            []int             `json:"columns,omitempty"`
	TeamScoring        bool              `json:"team_scoring,omitempty"`
	JokerCount         int               `json:"joker_count,omitempty"`
	DisabledCategories int               `json:"disabled_categories,omitempty"`
	Teams              map[string]string `json:"teams,omitempty"`
}

type roomMessage struct {
	Type   string `json:"type"`
	ReqID  string `json:"req_id,omitempty"`
	RoomID string `json:"room_id"`
}

type kickMessage struct {
	Type     string `json:"type"`
	ReqID    string `json:"req_id,omitempty"`
	RoomID   string `json:"room_id"`
	TargetID string `json:"target_id"`
}

// actionMessage is the flat action envelope; each game reads the
// fields it understands. The type is "<game>:action".
type actionMessage struct {
	Type   string `json:"type"`
	ReqID  string `json:"req_id,omitempty"`
	RoomID string `json:"room_id"`

	Action   string `json:"action"`
	Amount   int64  `json:"amount,omitempty"`
	Keep     []bool `json:"keep,omitempty"`
	Category string `json:"category,omitempty"`
	Column   int    `json:"column,omitempty"`
	BetType  string `json:"bet_type,omitempty"`
	Numbers  []int  `json:"numbers,omitempty"`
	Hand     int    `json:"hand,omitempty"`
}

type chatMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

type ack struct {
	Type    string `json:"type"`
	ReqID   string `json:"req_id,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	RoomID  string `json:"room_id,omitempty"`
}

// outbound wraps every server-initiated event.
type outbound struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}
