package observe

import (
	"time"

	"github.com/linkrelay/loginwatch/internal/classifier"
	"github.com/linkrelay/loginwatch/internal/run"
)

type MessageType string

const (
	MsgState   MessageType = "state"   // full run-state snapshot
	MsgEvent   MessageType = "event"   // one classified login event
	MsgOutcome MessageType = "outcome" // terminal verdict
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatePayload struct {
	State run.State `json:"state"`
}

type EventPayload struct {
	Event     classifier.Event `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
}

type OutcomePayload struct {
	Outcome  run.Outcome `json:"outcome"`
	ExitCode int         `json:"exitCode"`
}
