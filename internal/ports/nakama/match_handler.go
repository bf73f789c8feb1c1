// Package nakama is the session gateway: a Nakama runtime.Match
// implementation whose MatchLoop is invoked at most once concurrently per
// match by the Nakama runtime. That guarantee serializes every mutating
// operation within a match, so no separate lock or mailbox is built here.
package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejandrorodrom/navark-core-sub000/internal/app"
	"github.com/alejandrorodrom/navark-core-sub000/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
)

// tickRate is how many times per second MatchLoop is invoked. One tick
// per second is ample resolution against the 10s/30s turn timeouts.
const tickRate = 1

// MatchState is the in-memory state for one running match actor. It holds
// only what the gateway itself needs (current connections and the
// use-case Service); volatile coordination state lives in Redis and
// everything durable lives in Postgres, so this struct is not the source
// of truth for anything that must survive a process restart.
type MatchState struct {
	MatchID string
	App     *app.Service

	// conns maps a Nakama session id (this module's connId) to the
	// presence that owns it. A user may hold more than one entry here
	// (old + new session) during reconnection.
	conns map[string]runtime.Presence
}

func (s *MatchState) roomConnIDs() []string {
	out := make([]string, 0, len(s.conns))
	for connID := range s.conns {
		out = append(out, connID)
	}
	return out
}

func (s *MatchState) roomConnIDsExcept(exclude string) []string {
	out := make([]string, 0, len(s.conns))
	for connID := range s.conns {
		if connID != exclude {
			out = append(out, connID)
		}
	}
	return out
}

func (s *MatchState) roomUserIDs() []string {
	out := make([]string, 0, len(s.conns))
	for _, p := range s.conns {
		out = append(out, p.GetUserId())
	}
	return out
}

// presencesFor resolves a set of userIds (an Event's Recipients) to the
// live presences currently bound to this match, across every connection
// that userId holds.
func (s *MatchState) presencesFor(userIDs []string) []runtime.Presence {
	want := make(map[string]bool, len(userIDs))
	for _, u := range userIDs {
		want[u] = true
	}
	var out []runtime.Presence
	for _, p := range s.conns {
		if want[p.GetUserId()] {
			out = append(out, p)
		}
	}
	return out
}

// NewMatch is the factory Nakama calls to obtain one match actor instance.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit constructs the per-match Service (and, inside it, the
// per-match TimeoutManager; see init.go for why that instance is not
// shared across matches) and the initial match label (match id, status
// "waiting").
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	state := &MatchState{
		MatchID: matchID,
		App:     newMatchService(),
		conns:   make(map[string]runtime.Presence),
	}

	labelBytes, err := json.Marshal(matchLabel{MatchID: matchID, Status: string(domain.StatusWaiting)})
	if err != nil {
		logger.Error("MatchInit: failed to marshal label: %v", err)
		return nil, 0, ""
	}

	return state, tickRate, string(labelBytes)
}

// matchLabel is the Nakama match-listing label: the fields an external
// matchmaking HTTP surface would filter on.
type matchLabel struct {
	MatchID     string `json:"matchId"`
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	data, err := json.Marshal(matchLabel{MatchID: state.MatchID, Connections: len(state.conns)})
	if err != nil {
		logger.Error("updateLabel: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(data)); err != nil {
		logger.Error("updateLabel: %v", err)
	}
}

// MatchJoinAttempt accepts every socket-level join. The business
// validations (match full, not waiting, already abandoned) are enforced
// by Service.Join once the client sends a PLAYER_JOIN message over the
// now-open socket, not at the transport layer; Nakama's socket join and
// this module's "join as player" are deliberately distinct steps.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	return matchState, true, ""
}

// MatchJoin registers each joining presence and, for any presence whose
// lastMatchByUser pointer already names this match, runs the reconnect
// flow automatically. A fresh join with no prior pointer is a silent
// no-op rather than a spurious RECONNECT_FAILED to every first-time
// joiner.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		connID := p.GetSessionId()
		matchState.conns[connID] = p

		lastMatchID, found, err := matchState.App.Ephemeral.GetLastMatchByUser(ctx, p.GetUserId())
		if err != nil {
			logger.Error("MatchJoin: last-match lookup failed for %s: %v", p.GetUserId(), err)
			continue
		}
		if !found || lastMatchID != matchState.MatchID {
			continue
		}

		events, err := matchState.App.Reconnect(ctx, p.GetUserId(), connID)
		if err != nil {
			logger.Error("MatchJoin: reconnect failed for %s: %v", p.GetUserId(), err)
			continue
		}
		mh.dispatch(matchState, dispatcher, logger, events)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is the socket-level counterpart of MatchJoin: it always runs
// the Disconnect handler for each leaving connection, regardless of
// whether that connection ever sent a business-level PLAYER_JOIN.
// Disconnect itself no-ops via GetConn's ok=false branch when the
// connection was never bound.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		connID := p.GetSessionId()
		delete(matchState.conns, connID)

		events, err := matchState.App.Disconnect(ctx, connID, matchState.roomConnIDs())
		if err != nil {
			logger.Error("MatchLeave: disconnect failed for %s: %v", connID, err)
			continue
		}
		mh.dispatch(matchState, dispatcher, logger, events)
	}

	if len(matchState.conns) == 0 {
		logger.Info("MatchLeave: no connections remain, terminating match %s.", matchState.MatchID)
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// inboundEnvelope is the single JSON shape every inbound message arrives
// as, carried inside the one opcode OpMessage names.
type inboundEnvelope struct {
	Type         string `json:"type"`
	Role         string `json:"role,omitempty"`
	Team         int    `json:"team,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
	X            int    `json:"x,omitempty"`
	Y            int    `json:"y,omitempty"`
	ShotType     string `json:"shotType,omitempty"`
}

// outboundEnvelope is the matching shape every outbound event is encoded
// as before going out over OpMessage.
type outboundEnvelope struct {
	Type    app.EventKind `json:"type"`
	Payload any           `json:"payload,omitempty"`
}

// MatchLoop dispatches every inbound message to its handler, then checks
// for expired turn timers and emits the periodic HEARTBEAT.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		events, err := mh.handleMessage(ctx, matchState, msg)
		if err != nil {
			logger.Warn("MatchLoop: failed to handle message from %s: %v", msg.GetUserId(), err)
			continue
		}
		mh.dispatch(matchState, dispatcher, logger, events)
		mh.kickPlayers(matchState, dispatcher, logger, events)
	}

	now := time.Now().UTC()
	for range matchState.App.Timeout.Expired(now) {
		events, err := matchState.App.HandleTimeout(ctx, matchState.MatchID, now)
		if err != nil {
			logger.Error("MatchLoop: timeout handling failed: %v", err)
			continue
		}
		mh.dispatch(matchState, dispatcher, logger, events)
		mh.kickPlayers(matchState, dispatcher, logger, events)
	}

	if heartbeatIntervalTicks > 0 && tick%heartbeatIntervalTicks == 0 {
		mh.broadcastHeartbeat(dispatcher)
	}

	return matchState
}

// handleMessage decodes one inbound envelope and routes it to the
// matching Service handler, translating a returned error into a reasoned
// ACK/failure event instead of letting it escape to the peer.
func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, msg runtime.MatchData) ([]app.Event, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(msg.GetData(), &env); err != nil {
		return nil, fmt.Errorf("nakama: decode inbound message: %w", err)
	}

	userID := msg.GetUserId()
	connID := msg.GetSessionId()

	switch env.Type {
	case MsgPlayerJoin:
		role := env.Role
		if role == "" {
			role = app.RolePlayer
		}
		nickname := userID
		if p, ok := state.conns[connID]; ok {
			nickname = p.GetUsername()
		}
		events, err := state.App.Join(ctx, state.MatchID, userID, connID, role, nickname)
		if err != nil {
			return []app.Event{connEvent(app.EventJoinDenied, userID, app.JoinDeniedPayload{Ack: failedAck(err)})}, nil
		}
		return events, nil

	case MsgPlayerReady:
		events, err := state.App.Ready(ctx, state.MatchID, userID, connID, state.roomConnIDs())
		if err != nil {
			return []app.Event{connEvent(app.EventError, userID, app.ErrorPayload{Code: "READY_ERROR", Message: err.Error()})}, nil
		}
		return events, nil

	case MsgPlayerChooseTeam:
		events, err := state.App.ChooseTeam(ctx, state.MatchID, userID, connID, env.Team)
		if err != nil {
			return []app.Event{connEvent(app.EventError, userID, app.ErrorPayload{Code: "TEAM_ERROR", Message: err.Error()})}, nil
		}
		return events, nil

	case MsgPlayerLeave:
		// Unbind the connection before running Leave so the socket-level
		// MatchLeave that follows finds no conn entry and no-ops instead of
		// emitting a second PLAYER_LEFT for the same departure.
		delete(state.conns, connID)
		if err := state.App.Ephemeral.DeleteConn(ctx, connID); err != nil {
			return nil, err
		}
		events, err := state.App.Leave(ctx, state.MatchID, userID, state.roomConnIDs())
		if err != nil {
			return []app.Event{connEvent(app.EventError, userID, app.ErrorPayload{Code: "LEAVE_ERROR", Message: err.Error()})}, nil
		}
		return events, nil

	case MsgCreatorTransfer:
		events, err := state.App.TransferCreator(ctx, state.MatchID, userID, env.TargetUserID, state.roomUserIDs())
		if err != nil {
			return []app.Event{connEvent(app.EventCreatorTransferAck, userID, app.CreatorTransferAckPayload{Ack: failedAck(err)})}, nil
		}
		return events, nil

	case MsgGameStart:
		ready, err := state.App.Ephemeral.AllReady(ctx, state.MatchID)
		if err != nil {
			return nil, err
		}
		teams, err := state.App.Ephemeral.AllTeams(ctx, state.MatchID)
		if err != nil {
			return nil, err
		}
		events, err := state.App.Start(ctx, state.MatchID, userID, state.roomConnIDs(), ready, teams)
		if err != nil {
			return []app.Event{connEvent(app.EventGameStartAck, userID, app.GameStartAckPayload{Ack: failedAck(err)})}, nil
		}
		return events, nil

	case MsgPlayerFire:
		target := domain.Target{Row: env.X, Col: env.Y}
		events, err := state.App.Fire(ctx, state.MatchID, userID, target, domain.ShotType(env.ShotType), time.Now().UTC())
		if err != nil {
			return []app.Event{connEvent(app.EventPlayerFireAck, userID, app.PlayerFireAckPayload{Ack: failedAck(err)})}, nil
		}
		return events, nil

	default:
		return []app.Event{connEvent(app.EventError, userID, app.ErrorPayload{Code: "UNKNOWN_MESSAGE_ERROR", Message: fmt.Sprintf("unknown message type %q", env.Type)})}, nil
	}
}

func failedAck(err error) app.Ack {
	return app.Ack{Success: false, Error: err.Error()}
}

func connEvent(kind app.EventKind, userID string, payload any) app.Event {
	return app.Event{Kind: kind, Scope: app.ScopeConnection, Recipients: []string{userID}, Payload: payload}
}

// dispatch encodes and broadcasts every Event the Service returned. Room-
// scoped events go to every presence currently in the match; connection-
// scoped events are narrowed to the recipients' own presences. Events are
// broadcast in the slice order the Service produced them in, so every
// subscriber observes a room's events in emission order.
func (mh *matchHandler) dispatch(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		data, err := json.Marshal(outboundEnvelope{Type: ev.Kind, Payload: ev.Payload})
		if err != nil {
			logger.Error("dispatch: failed to marshal %s: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if ev.Scope == app.ScopeConnection {
			recipients = state.presencesFor(ev.Recipients)
			if len(recipients) == 0 {
				continue
			}
		}

		if err := dispatcher.BroadcastMessage(OpMessage, data, recipients, nil, true); err != nil {
			logger.Error("dispatch: broadcast %s failed: %v", ev.Kind, err)
		}
	}
}

// kickPlayers forcibly disconnects every presence named by a
// PLAYER_KICKED event's recipients.
func (mh *matchHandler) kickPlayers(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		if ev.Kind != app.EventPlayerKicked {
			continue
		}
		presences := state.presencesFor(ev.Recipients)
		if len(presences) == 0 {
			continue
		}
		if err := dispatcher.MatchKick(presences); err != nil {
			logger.Error("kickPlayers: %v", err)
		}
	}
}

func (mh *matchHandler) broadcastHeartbeat(dispatcher runtime.MatchDispatcher) {
	data, err := json.Marshal(outboundEnvelope{Type: app.EventHeartbeat})
	if err != nil {
		return
	}
	_ = dispatcher.BroadcastMessage(OpMessage, data, nil, nil, true)
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: match terminated, grace=%ds", graceSeconds)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
