package app

import (
	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"
)

// EventKind identifies one outbound message name.
type EventKind string

const (
	// Room-scoped: delivered to every connection currently in the match.
	EventPlayerJoined       EventKind = "PLAYER_JOINED"
	EventPlayerLeft         EventKind = "PLAYER_LEFT"
	EventCreatorChanged     EventKind = "CREATOR_CHANGED"
	EventPlayerReadyNotify  EventKind = "PLAYER_READY_NOTIFY"
	EventAllReady           EventKind = "ALL_READY"
	EventPlayerTeamAssigned EventKind = "PLAYER_TEAM_ASSIGNED"
	EventGameStarted        EventKind = "GAME_STARTED"
	EventTurnChanged        EventKind = "TURN_CHANGED"
	EventTurnTimeout        EventKind = "TURN_TIMEOUT"
	EventPlayerFired        EventKind = "PLAYER_FIRED"
	EventPlayerEliminated   EventKind = "PLAYER_ELIMINATED"
	EventGameEnded          EventKind = "GAME_ENDED"
	EventGameAbandoned      EventKind = "GAME_ABANDONED"
	EventPlayerReconnected  EventKind = "PLAYER_RECONNECTED"

	// Connection-scoped: delivered only to the users named in the event's
	// Recipients (usually the actor that triggered them).
	EventPlayerJoinedAck    EventKind = "PLAYER_JOINED_ACK"
	EventSpectatorJoinedAck EventKind = "SPECTATOR_JOINED_ACK"
	EventJoinDenied         EventKind = "JOIN_DENIED"
	EventPlayerReadyAck     EventKind = "PLAYER_READY_ACK"
	EventGameStartAck       EventKind = "GAME_START_ACK"
	EventPlayerFireAck      EventKind = "PLAYER_FIRE_ACK"
	EventCreatorTransferAck EventKind = "CREATOR_TRANSFER_ACK"
	EventNuclearStatus      EventKind = "NUCLEAR_STATUS"
	EventBoardUpdate        EventKind = "BOARD_UPDATE"
	EventReconnectAck       EventKind = "RECONNECT_ACK"
	EventReconnectFailed    EventKind = "RECONNECT_FAILED"
	EventPlayerKicked       EventKind = "PLAYER_KICKED"
	EventError              EventKind = "ERROR"
	EventHeartbeat          EventKind = "HEARTBEAT"
)

// Scope distinguishes a room broadcast from a reply aimed at one actor.
type Scope int

const (
	// ScopeRoom is delivered to every connection presently in the match.
	ScopeRoom Scope = iota
	// ScopeConnection is delivered only to Event.Recipients (user IDs);
	// the gateway resolves these to the underlying connections/presences.
	ScopeConnection
)

// Event is one outbound message the Session Gateway dispatches. Scope
// determines delivery breadth; Recipients narrows a ScopeConnection event
// to particular user IDs (always exactly one entry for an ack).
type Event struct {
	Kind       EventKind
	Scope      Scope
	Payload    any
	Recipients []string
}

func roomEvent(kind EventKind, payload any) Event {
	return Event{Kind: kind, Scope: ScopeRoom, Payload: payload}
}

func ackEvent(kind EventKind, userID string, payload any) Event {
	return Event{Kind: kind, Scope: ScopeConnection, Payload: payload, Recipients: []string{userID}}
}

// --- Room-scoped payloads ---

type PlayerJoinedPayload struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

type PlayerLeftPayload struct {
	UserID string `json:"userId"`
}

type CreatorChangedPayload struct {
	NewCreatorID string `json:"newCreatorId"`
}

type PlayerReadyNotifyPayload struct {
	UserID string `json:"userId"`
}

type PlayerTeamAssignedPayload struct {
	UserID string `json:"userId"`
	Team   int    `json:"team"`
}

type GameStartedPayload struct {
	MatchID string `json:"matchId"`
}

type TurnChangedPayload struct {
	UserID string `json:"userId"`
}

type TurnTimeoutPayload struct {
	UserID string `json:"userId"`
}

type PlayerFiredPayload struct {
	ShooterID string          `json:"shooterId"`
	X         int             `json:"x"`
	Y         int             `json:"y"`
	ShotType  domain.ShotType `json:"shotType"`
	Hit       bool            `json:"hit"`
	Sunk      bool            `json:"sunk"`
}

type PlayerEliminatedPayload struct {
	OwnerID string `json:"ownerId"`
}

type GameEndedPayload struct {
	Mode         domain.MatchMode `json:"mode"`
	WinnerUserID string           `json:"winnerUserId,omitempty"`
	WinningTeam  int              `json:"winningTeam,omitempty"`
}

type PlayerReconnectedPayload struct {
	UserID string `json:"userId"`
}

// --- Connection-scoped payloads ---

// Ack is embedded by every connection-scoped response.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type PlayerJoinedAckPayload struct {
	Ack
	Board *domain.BoardView `json:"board,omitempty"`
}

type SpectatorJoinedAckPayload struct {
	Ack
	Board *domain.BoardView `json:"board,omitempty"`
}

type JoinDeniedPayload struct {
	Ack
}

type PlayerReadyAckPayload struct {
	Ack
}

type GameStartAckPayload struct {
	Ack
}

type PlayerFireAckPayload struct {
	Ack
	Hit  bool `json:"hit"`
	Sunk bool `json:"sunk"`
}

type CreatorTransferAckPayload struct {
	Ack
}

type NuclearStatusPayload struct {
	Progress   int  `json:"progress"`
	HasNuclear bool `json:"hasNuclear"`
	Used       bool `json:"used"`
}

type BoardUpdatePayload struct {
	Board domain.BoardView `json:"board"`
}

type ReconnectAckPayload struct {
	Ack
	Board *domain.BoardView `json:"board,omitempty"`
}

type ReconnectFailedPayload struct {
	Ack
	Reason string `json:"reason"`
}

type PlayerKickedPayload struct {
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
