// Package webhook delivers classified login events to the remote listener as
// HMAC-signed HTTP callbacks. Delivery is best-effort: failures are logged
// and never surfaced to the classification path, and nothing is retried.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/linkrelay/loginwatch/internal/classifier"
)

// Path is the fixed endpoint suffix appended to the configured base URL.
const Path = "/api/bot-webhook"

// SignatureHeader carries the hex HMAC-SHA256 of the request body,
// prefixed with "sha256=".
const SignatureHeader = "X-Webhook-Signature"

type payload struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
	QRBase64   string `json:"qr_base64,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// Sender posts signed event payloads to a single webhook target. A zero
// base URL disables delivery entirely; every send becomes a logged no-op.
type Sender struct {
	baseURL    string
	instanceID string
	secret     string
	client     *http.Client
}

func NewSender(baseURL, instanceID, secret string) *Sender {
	return &Sender{
		baseURL:    baseURL,
		instanceID: instanceID,
		secret:     secret,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendEvent dispatches ev on a fresh goroutine and returns immediately.
// Out-of-order delivery relative to other sends is acceptable; the receiver
// tolerates it.
func (s *Sender) SendEvent(ev classifier.Event) {
	go s.Send(ev.Kind.String(), ev.Payload, ev.Phone)
}

// Send posts one event synchronously. The body is marshalled exactly once
// and the signature covers those same bytes; optional fields are omitted
// from the JSON rather than sent as null. Errors are logged, never returned.
func (s *Sender) Send(status, qrPayload, phone string) {
	if s.baseURL == "" {
		log.Printf("[webhook] no target configured, dropping %s event", status)
		return
	}

	body, err := json.Marshal(payload{
		InstanceID: s.instanceID,
		Status:     status,
		QRBase64:   qrPayload,
		Phone:      phone,
	})
	if err != nil {
		log.Printf("[webhook] marshal error for %s event: %v", status, err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+Path, bytes.NewReader(body))
	if err != nil {
		log.Printf("[webhook] request build error: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(body, s.secret))

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[webhook] %s delivery failed: %v", status, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	log.Printf("[webhook] %s delivered, remote status %d", status, resp.StatusCode)
}

// Sign returns the signature header value for body: "sha256=" followed by
// the hex HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature header value for body.
// Comparison is constant-time.
func Verify(body []byte, secret, sig string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(sig))
}
