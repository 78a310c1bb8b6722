package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linkrelay/loginwatch/internal/secret"
)

type captured struct {
	body        []byte
	contentType string
	signature   string
	path        string
}

func captureServer(t *testing.T, out *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		out.body = body
		out.contentType = r.Header.Get("Content-Type")
		out.signature = r.Header.Get(SignatureHeader)
		out.path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
}

func TestSendBodyAndSignature(t *testing.T) {
	var got captured
	srv := captureServer(t, &got)
	defer srv.Close()

	key := secret.Derive("abc", "def")
	s := NewSender(srv.URL, "inst-1", key)
	s.Send("qr_ready", "XYZ", "")

	if got.path != "/api/bot-webhook" {
		t.Errorf("path = %q, want /api/bot-webhook", got.path)
	}
	if got.contentType != "application/json" {
		t.Errorf("content type = %q", got.contentType)
	}

	var body map[string]any
	if err := json.Unmarshal(got.body, &body); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	if body["instance_id"] != "inst-1" || body["status"] != "qr_ready" || body["qr_base64"] != "XYZ" {
		t.Errorf("body = %v", body)
	}
	if _, present := body["phone"]; present {
		t.Error("phone key present in body, want omitted")
	}

	// The signature must validate against the exact bytes received.
	if !Verify(got.body, key, got.signature) {
		t.Errorf("signature %q does not validate against received body", got.signature)
	}
}

func TestSendIncludesPhoneWhenSet(t *testing.T) {
	var got captured
	srv := captureServer(t, &got)
	defer srv.Close()

	s := NewSender(srv.URL, "inst-1", "k")
	s.Send("configuring", "", "+15550001111")

	var body map[string]any
	if err := json.Unmarshal(got.body, &body); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	if body["phone"] != "+15550001111" {
		t.Errorf("phone = %v", body["phone"])
	}
	if _, present := body["qr_base64"]; present {
		t.Error("qr_base64 key present for payload-less event, want omitted")
	}
}

func TestSendNoTargetIsNoOp(t *testing.T) {
	s := NewSender("", "inst-1", "k")
	// Must not panic or block; there is nothing else observable.
	s.Send("qr_ready", "XYZ", "")
}

func TestSendTransportErrorDoesNotPanic(t *testing.T) {
	// Point at a closed server: delivery fails, Send logs and returns.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	s := NewSender(srv.URL, "inst-1", "k")
	s.Send("qr_ready", "XYZ", "")
}

func TestSendRemoteErrorStatusIsLoggedOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "inst-1", "k")
	s.Send("qr_ready", "XYZ", "")
}

func TestSignFormat(t *testing.T) {
	sig := Sign([]byte(`{"a":1}`), "secret")
	if len(sig) != len("sha256=")+64 {
		t.Errorf("signature length = %d, want 71", len(sig))
	}
	if sig[:7] != "sha256=" {
		t.Errorf("signature prefix = %q", sig[:7])
	}
	if !Verify([]byte(`{"a":1}`), "secret", sig) {
		t.Error("Verify rejected a fresh signature")
	}
	if Verify([]byte(`{"a":2}`), "secret", sig) {
		t.Error("Verify accepted a signature for different bytes")
	}
}
