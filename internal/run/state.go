// Package run models the state of a single login-watcher run. Unlike a
// fleet monitor there is exactly one run per process, so the store tracks
// one state value rather than a keyed map.
package run

import (
	"encoding/json"
	"time"
)

// Phase describes where the run currently is in the login flow.
type Phase int

const (
	Starting     Phase = iota // subprocess launched, no events yet
	AwaitingLink              // a QR code or pairing code has been shown
	Configuring               // connection succeeded, upstream is configuring
	Verifying                 // subprocess exited, credential check running
	Done                      // outcome decided
)

var phaseNames = map[Phase]string{
	Starting:     "starting",
	AwaitingLink: "awaiting_link",
	Configuring:  "configuring",
	Verifying:    "verifying",
	Done:         "done",
}

var phaseFromName = map[string]Phase{
	"starting":      Starting,
	"awaiting_link": AwaitingLink,
	"configuring":   Configuring,
	"verifying":     Verifying,
	"done":          Done,
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := phaseFromName[s]; ok {
		*p = v
	}
	return nil
}

// State is a snapshot of the current run, served verbatim by the observe
// endpoint. Optional fields use pointers or omitempty so absent values stay
// out of the JSON.
type State struct {
	RunID       string     `json:"runId"`
	Phase       Phase      `json:"phase"`
	StartedAt   time.Time  `json:"startedAt"`
	PID         int        `json:"pid,omitempty"`
	Connected   bool       `json:"connected"`
	EventCount  int        `json:"eventCount"`
	LastEvent   string     `json:"lastEvent,omitempty"`
	LastEventAt *time.Time `json:"lastEventAt,omitempty"`
	CPUPercent  float64    `json:"cpuPercent,omitempty"`
	RSSBytes    uint64     `json:"rssBytes,omitempty"`
	Outcome     *Outcome   `json:"outcome,omitempty"`
	ExitCode    *int       `json:"exitCode,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
