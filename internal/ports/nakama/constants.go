package nakama

// RpcResumeSession is the Nakama RPC id a freshly (re)authenticated
// client calls to learn its lastMatchByUser pointer before attempting to
// join a match socket. Nakama has no generic on-socket-connect hook
// outside of match join, so this RPC carries the resume lookup.
const RpcResumeSession = "resume_session"

// MatchNameNavalCombat is the authoritative match handler name registered
// with Nakama.
const MatchNameNavalCombat = "naval_combat_match"

// OpMessage is the single match-data opcode used for every inbound and
// outbound message. Rather than dedicating one opcode per message kind,
// each payload is a JSON envelope carrying its own "type" field.
const OpMessage int64 = 1

// Inbound message type names.
const (
	MsgPlayerJoin       = "PLAYER_JOIN"
	MsgPlayerReady      = "PLAYER_READY"
	MsgPlayerChooseTeam = "PLAYER_CHOOSE_TEAM"
	MsgPlayerLeave      = "PLAYER_LEAVE"
	MsgCreatorTransfer  = "CREATOR_TRANSFER"
	MsgGameStart        = "GAME_START"
	MsgPlayerFire       = "PLAYER_FIRE"
)

// heartbeatIntervalTicks is how often, in MatchLoop ticks, the gateway
// emits HEARTBEAT. At the 1-tick-per-second rate MatchInit requests, this
// is once every 15 seconds.
const heartbeatIntervalTicks = 15
