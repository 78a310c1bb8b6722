package run

import "encoding/json"

// Outcome is the terminal verdict of a run, computed exactly once at
// subprocess exit from the exit code, the connected flag, and the
// credential confirmation.
type Outcome int

const (
	SuccessConfirmed  Outcome = iota // exit 0, connected, credentials on disk
	SuccessUnverified                // exit 0, connected, but no credentials found
	FinishedNoSignal                 // exit 0 without a connection-success line
	Failed                           // subprocess exited non-zero
)

var outcomeNames = map[Outcome]string{
	SuccessConfirmed:  "success-confirmed",
	SuccessUnverified: "success-unverified",
	FinishedNoSignal:  "finished-no-success-signal",
	Failed:            "failed",
}

var outcomeFromName = map[string]Outcome{
	"success-confirmed":          SuccessConfirmed,
	"success-unverified":         SuccessUnverified,
	"finished-no-success-signal": FinishedNoSignal,
	"failed":                     Failed,
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return "unknown"
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := outcomeFromName[s]; ok {
		*o = v
	}
	return nil
}
