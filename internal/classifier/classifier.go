// Package classifier turns the raw line output of the channel login
// subprocess into discrete login events. It recognizes three things: phrases
// that indicate the session connected, long pairing-code tokens, and
// multi-line terminal-rendered QR artwork blocks.
package classifier

import (
	"encoding/base64"
	"regexp"
	"strings"
	"sync"
)

// connectedPhrases are matched case-insensitively against every line until
// the first hit. The login process phrases success differently across
// versions, so several variants are recognized.
var connectedPhrases = []string{
	"connected",
	"linked after restart",
	"web session ready",
	"session authenticated",
	"logged in",
}

// pairingCodePattern matches the device-link token the login process prints
// as a camera-free alternative to the QR image. Real tokens are long; short
// matches are noise (the "2@" prefix shows up in unrelated log lines).
var pairingCodePattern = regexp.MustCompile(`2@[A-Za-z0-9+/=,]+`)

// minPairingCodeLen is the exclusive length threshold below which a
// pairing-code match is ignored.
const minPairingCodeLen = 50

// qrTopEdges are the leading glyph runs of the first line of a
// terminal-rendered QR code. Two variants cover the inverted and
// non-inverted renderings.
var qrTopEdges = []string{
	"█▀▀▀▀▀", // █▀▀▀▀▀
	"▄▄▄▄▄▄▄", // ▄▄▄▄▄▄▄
}

// qrBottomEdge is the glyph run that terminates the artwork. A real QR code
// spans well over minQRBlockLines lines, so the bottom edge is only honored
// once the buffer is past that size.
const qrBottomEdge = "▀▀▀▀▀▀▀" // ▀▀▀▀▀▀▀

const minQRBlockLines = 10

// Classifier is a stateful line scanner. One instance is shared by the
// stdout and stderr reader goroutines, so all scan state lives behind a
// mutex; Feed serializes access and each call observes and mutates the
// state atomically.
type Classifier struct {
	mu          sync.Mutex
	capturing   bool
	buffer      []string
	lastSentKey string
	connected   bool
}

func New() *Classifier {
	return &Classifier{}
}

// Connected reports whether a connection-success phrase has been seen.
func (c *Classifier) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Feed classifies a single line (newline already stripped) and returns the
// resulting event, if any. Rules are evaluated in strict priority order;
// the first rule that claims the line wins:
//
//  1. connection-success phrase (fires at most once per run)
//  2. pairing-code token longer than minPairingCodeLen
//  3. QR artwork top edge starts a capture
//  4. while capturing, every line (including the start line) accumulates
//  5. while capturing, the bottom edge past minQRBlockLines closes the
//     block and emits its base64 encoding
//
// Identical consecutive payloads are suppressed via a single-slot dedup key
// holding the last payload actually emitted.
func (c *Classifier) Feed(line string) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected && containsConnectedPhrase(line) {
		c.connected = true
		return Event{Kind: Configuring}, true
	}

	if m := pairingCodePattern.FindString(line); len(m) > minPairingCodeLen {
		if m == c.lastSentKey {
			return Event{}, false
		}
		c.lastSentKey = m
		return Event{Kind: QRReady, Payload: m}, true
	}

	if !c.capturing && hasQRTopEdge(line) {
		c.capturing = true
		c.buffer = c.buffer[:0]
	}

	if c.capturing {
		c.buffer = append(c.buffer, line)
		if len(c.buffer) > minQRBlockLines && strings.Contains(line, qrBottomEdge) {
			c.capturing = false
			encoded := base64.StdEncoding.EncodeToString([]byte(strings.Join(c.buffer, "\n")))
			c.buffer = nil
			if encoded != c.lastSentKey {
				c.lastSentKey = encoded
				return Event{Kind: QRReady, Payload: encoded}, true
			}
		}
	}

	return Event{}, false
}

func containsConnectedPhrase(line string) bool {
	lower := strings.ToLower(line)
	for _, phrase := range connectedPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func hasQRTopEdge(line string) bool {
	for _, edge := range qrTopEdges {
		if strings.Contains(line, edge) {
			return true
		}
	}
	return false
}
