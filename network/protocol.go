package network

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"trench_war_server/logic"
)

// Client to server message kinds.
const (
	KindPing          = "ping"
	KindCreateSession = "create_session"
	KindJoinSession   = "join_session"
	KindFindMatch     = "find_match"
	KindRejoin        = "rejoin"
	KindInput         = "input"
)

// Server to client message kinds.
const (
	KindPong           = "pong"
	KindSessionCreated = "session_created"
	KindGameStart      = "game_start"
	KindMatchFound     = "match_found"
	KindWaitingMatch   = "waiting_match"
	KindError          = "error"
	KindExplosion      = "explosion"
	KindState          = "state"
	KindPlayerLeft     = "player_left"
	KindRejoinFailed   = "rejoin_failed"
)

// ErrMalformedMessage covers unparseable JSON, unknown kinds and messages
// missing their durable token.
var ErrMalformedMessage = errors.New("malformed message")

// Envelope is the raw shape of every client message.
type Envelope struct {
	Type  string       `json:"type" jsonschema:"required,enum=ping,enum=create_session,enum=join_session,enum=find_match,enum=rejoin,enum=input"`
	Token string       `json:"token,omitempty" jsonschema:"description=Durable client identity; required for every kind except ping"`
	Code  string       `json:"code,omitempty" jsonschema:"description=Session code for join_session"`
	Input *logic.Input `json:"input,omitempty"`
}

// Request is a decoded client message.
type Request interface {
	Kind() string
	ClientToken() string
}

type PingRequest struct{ Token string }
type CreateSessionRequest struct{ Token string }
type JoinSessionRequest struct{ Token, Code string }
type FindMatchRequest struct{ Token string }
type RejoinRequest struct{ Token string }

type InputRequest struct {
	Token string
	Input logic.Input
}

func (PingRequest) Kind() string          { return KindPing }
func (CreateSessionRequest) Kind() string { return KindCreateSession }
func (JoinSessionRequest) Kind() string   { return KindJoinSession }
func (FindMatchRequest) Kind() string     { return KindFindMatch }
func (RejoinRequest) Kind() string        { return KindRejoin }
func (InputRequest) Kind() string         { return KindInput }

func (r PingRequest) ClientToken() string          { return r.Token }
func (r CreateSessionRequest) ClientToken() string { return r.Token }
func (r JoinSessionRequest) ClientToken() string   { return r.Token }
func (r FindMatchRequest) ClientToken() string     { return r.Token }
func (r RejoinRequest) ClientToken() string        { return r.Token }
func (r InputRequest) ClientToken() string         { return r.Token }

// DecodeRequest parses one client message into its typed form.
func DecodeRequest(b []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, errors.Wrap(ErrMalformedMessage, err.Error())
	}
	if env.Type == KindPing {
		return PingRequest{Token: env.Token}, nil
	}
	if env.Token == "" {
		return nil, errors.Wrapf(ErrMalformedMessage, "%s without token", env.Type)
	}

	switch env.Type {
	case KindCreateSession:
		return CreateSessionRequest{Token: env.Token}, nil
	case KindJoinSession:
		return JoinSessionRequest{Token: env.Token, Code: NormalizeCode(env.Code)}, nil
	case KindFindMatch:
		return FindMatchRequest{Token: env.Token}, nil
	case KindRejoin:
		return RejoinRequest{Token: env.Token}, nil
	case KindInput:
		in := InputRequest{Token: env.Token}
		if env.Input != nil {
			in.Input = *env.Input
		}
		return in, nil
	default:
		return nil, errors.Wrapf(ErrMalformedMessage, "unknown type %q", env.Type)
	}
}

// NormalizeCode trims and upper-cases a user typed session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type PongMsg struct {
	Type string `json:"type" jsonschema:"required,enum=pong"`
}

type SessionCreatedMsg struct {
	Type     string     `json:"type" jsonschema:"required,enum=session_created"`
	Code     string     `json:"code" jsonschema:"required"`
	PlayerID string     `json:"playerId" jsonschema:"required"`
	Side     logic.Side `json:"side" jsonschema:"required,enum=allies,enum=axis"`
}

type GameStartMsg struct {
	Type     string          `json:"type" jsonschema:"required,enum=game_start"`
	State    json.RawMessage `json:"state" jsonschema:"required,type=object"`
	PlayerID string          `json:"playerId" jsonschema:"required"`
	Side     logic.Side      `json:"side" jsonschema:"required,enum=allies,enum=axis"`
}

type MatchFoundMsg struct {
	Type string `json:"type" jsonschema:"required,enum=match_found"`
	Code string `json:"code" jsonschema:"required"`
}

type WaitingMatchMsg struct {
	Type     string     `json:"type" jsonschema:"required,enum=waiting_match"`
	Code     string     `json:"code" jsonschema:"required"`
	PlayerID string     `json:"playerId" jsonschema:"required"`
	Side     logic.Side `json:"side" jsonschema:"required,enum=allies,enum=axis"`
}

type ErrorMsg struct {
	Type    string `json:"type" jsonschema:"required,enum=error"`
	Message string `json:"message" jsonschema:"required"`
}

type ExplosionMsg struct {
	Type string  `json:"type" jsonschema:"required,enum=explosion"`
	X    float64 `json:"x" jsonschema:"required"`
	Y    float64 `json:"y" jsonschema:"required"`
}

type StateMsg struct {
	Type  string          `json:"type" jsonschema:"required,enum=state"`
	State json.RawMessage `json:"state" jsonschema:"required,type=object"`
}

type PlayerLeftMsg struct {
	Type     string `json:"type" jsonschema:"required,enum=player_left"`
	PlayerID string `json:"playerId" jsonschema:"required"`
}

type RejoinFailedMsg struct {
	Type string `json:"type" jsonschema:"required,enum=rejoin_failed"`
}

// ServerMessages lists one zero value of every server message, in catalogue
// order.
func ServerMessages() []any {
	return []any{
		PongMsg{}, SessionCreatedMsg{}, GameStartMsg{}, MatchFoundMsg{},
		WaitingMatchMsg{}, ErrorMsg{}, ExplosionMsg{}, StateMsg{},
		PlayerLeftMsg{}, RejoinFailedMsg{},
	}
}

// Encode marshals a server message. Every message type here marshals
// cleanly, so a failure is logged and yields nil.
func Encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Error("encode message failed")
		return nil
	}
	return b
}

func pong() []byte { return Encode(PongMsg{Type: KindPong}) }

func sessionCreated(code, token string, side logic.Side) []byte {
	return Encode(SessionCreatedMsg{Type: KindSessionCreated, Code: code, PlayerID: token, Side: side})
}

func gameStart(state json.RawMessage, token string, side logic.Side) []byte {
	return Encode(GameStartMsg{Type: KindGameStart, State: state, PlayerID: token, Side: side})
}

func matchFound(code string) []byte {
	return Encode(MatchFoundMsg{Type: KindMatchFound, Code: code})
}

func waitingMatch(code, token string, side logic.Side) []byte {
	return Encode(WaitingMatchMsg{Type: KindWaitingMatch, Code: code, PlayerID: token, Side: side})
}

func errorMsg(message string) []byte {
	return Encode(ErrorMsg{Type: KindError, Message: message})
}

func explosion(e logic.Explosion) []byte {
	return Encode(ExplosionMsg{Type: KindExplosion, X: e.X, Y: e.Y})
}

func stateMsg(state json.RawMessage) []byte {
	return Encode(StateMsg{Type: KindState, State: state})
}

func playerLeft(token string) []byte {
	return Encode(PlayerLeftMsg{Type: KindPlayerLeft, PlayerID: token})
}

func rejoinFailed() []byte { return Encode(RejoinFailedMsg{Type: KindRejoinFailed}) }
