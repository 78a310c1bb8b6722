// Package creds checks that a claimed login actually produced durable
// credentials on disk. The login process reports success on its own exit
// code; this package is the independent second signal.
package creds

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Dir returns the credential directory for the default whatsapp channel
// under stateDir. The directory's contents are opaque; only its existence
// and non-emptiness matter.
func Dir(stateDir string) string {
	return filepath.Join(stateDir, "credentials", "whatsapp", "default")
}

// Confirm polls path up to maxAttempts times, sleeping delay between
// attempts, until the directory exists and holds at least one entry.
// Absence is an ordinary negative outcome, not an error; read failures
// (permissions etc.) are logged and count as not-confirmed. After the last
// failed attempt the parent directory is listed once for the operator log.
func Confirm(path string, maxAttempts int, delay time.Duration) bool {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		entries, err := os.ReadDir(path)
		if err == nil && len(entries) > 0 {
			log.Printf("[creds] confirmed: %d entries in %s (attempt %d/%d)",
				len(entries), path, attempt, maxAttempts)
			return true
		}
		if err != nil && !os.IsNotExist(err) {
			log.Printf("[creds] read error on %s: %v", path, err)
		}
		if attempt < maxAttempts {
			time.Sleep(delay)
		}
	}

	logParentListing(path, maxAttempts)
	return false
}

// logParentListing emits a diagnostic listing of the credential directory's
// parent. Purely for the operator; the confirmation result is already final.
func logParentListing(path string, attempts int) {
	parent := filepath.Dir(path)
	entries, err := os.ReadDir(parent)
	if err != nil {
		log.Printf("[creds] not confirmed after %d attempts; cannot list %s: %v",
			attempts, parent, err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	log.Printf("[creds] not confirmed after %d attempts; %s contains %v",
		attempts, parent, names)
}
