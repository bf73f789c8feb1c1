package app

import "errors"

// RolePlayer and RoleSpectator are the two join roles PLAYER_JOIN
// accepts.
const (
	RolePlayer    = "player"
	RoleSpectator = "spectator"
)

// Sentinel errors for validation and not-found outcomes. Handlers
// translate every one of these into a reasoned ACK or a dedicated failure
// event; none of them is allowed to escape to a peer connection as a raw
// error.
var (
	ErrMatchNotFound      = errors.New("app: match not found")
	ErrAlreadyAbandoned   = errors.New("app: user is abandoned from this match")
	ErrMatchFull          = errors.New("app: match is full")
	ErrMatchNotWaiting    = errors.New("app: match is not waiting for players")
	ErrMatchNotPlaying    = errors.New("app: match is not in progress")
	ErrNotCreator         = errors.New("app: actor is not the match creator")
	ErrNotReady           = errors.New("app: not every connection is ready")
	ErrTeamsIncomplete    = errors.New("app: teams mode requires every connection on a team")
	ErrTeamsTooSmall      = errors.New("app: teams mode requires at least one team with two or more members")
	ErrInvalidTeam        = errors.New("app: team out of range")
	ErrNotTeamsMode       = errors.New("app: match is not in teams mode")
	ErrTargetNotInRoom    = errors.New("app: target user is not connected to this match")
	ErrNotYourTurn        = errors.New("app: it is not the actor's turn")
	ErrNuclearUnavailable = errors.New("app: nuclear shot is not available")
	ErrNuclearAlreadyUsed = errors.New("app: no puedes usar la bomba nuclear")
	ErrNotAPlayer         = errors.New("app: actor is not a player in this match")
	ErrNoLastMatch        = errors.New("app: no prior match recorded for this user")
)

// minPlayersForTeams is the per-team minimum the Start handler enforces
// when the match is in teams mode: at least one team needs two or more
// members.
const minPlayersForTeams = 2

// defaultNuclearProgressThreshold is used when no Config is wired (tests,
// or a Service constructed without one); production always sources this
// from Config.NuclearProgressThreshold.
const defaultNuclearProgressThreshold = 6
