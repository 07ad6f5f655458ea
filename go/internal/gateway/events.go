package gateway

import (
	"encoding/json"

	"github.com/drewhoward/gamenight/go/internal/models"
)

// Message type tags as they appear on the wire.
const (
	MsgSync               = "sync"
	MsgReset              = "reset"
	MsgSignUp             = "signUp"
	MsgSetViewingQuestion = "setViewingQuestion"
	MsgUnsetQuestion      = "unsetQuestion"
	MsgRevealAnswer       = "revealAnswer"
	MsgAllowBuzz          = "allowBuzz"
	MsgBuzzIn             = "buzzIn"
	MsgBuzzAccepted       = "buzzAccepted"
	MsgClearBuzz          = "clearBuzz"
	MsgStartTimer         = "startTimer"
	MsgStopTimer          = "stopTimer"
	MsgAwardPoints        = "awardPoints"
	MsgDeductPoints       = "deductPoints"
	MsgSetShowCode        = "setShowCode"
	MsgRemoveTeam         = "removeTeam"
	MsgIncrementCount     = "incrementCount"
)

// Envelope is one wire frame: a UTF-8 JSON object {"type": ..., "data": ...}.
// No other framing, versioning, or compression exists.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`

	// raw keeps the original frame bytes for verbatim relay.
	raw []byte
}

// outbound is the server-originated counterpart of Envelope.
type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type SignUpPayload struct {
	TeamName string `json:"teamName"`
}

type SetViewingQuestionPayload struct {
	Question models.Question `json:"question"`
}

type AllowBuzzPayload struct {
	Allowed bool `json:"allowed"`
}

type BuzzInPayload struct {
	TeamName string `json:"teamName"`
}

type BuzzAcceptedPayload struct {
	TeamName string `json:"teamName"`
}

type StartTimerPayload struct {
	Seconds int `json:"seconds"`
}

type PointsPayload struct {
	TeamName string `json:"teamName"`
	Amount   int    `json:"amount"`
}

type SetShowCodePayload struct {
	ShowCode bool `json:"showCode"`
}

type RemoveTeamPayload struct {
	TeamName string `json:"teamName"`
}
