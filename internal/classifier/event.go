package classifier

import "encoding/json"

// Kind classifies login events surfaced from the subprocess output.
type Kind int

const (
	QRReady     Kind = iota // a pairing code or QR artwork is available
	Configuring             // the session connected; upstream is configuring
)

var kindNames = map[Kind]string{
	QRReady:     "qr_ready",
	Configuring: "configuring",
}

var kindFromName = map[string]Kind{
	"qr_ready":    QRReady,
	"configuring": Configuring,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := kindFromName[s]; ok {
		*k = v
	}
	return nil
}

// Event is a single classified login event. Payload carries the raw pairing
// code or the base64-encoded QR artwork for QRReady events; it is empty for
// Configuring. Phone is set when the output identified the linked number.
type Event struct {
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload,omitempty"`
	Phone   string `json:"phone,omitempty"`
}
