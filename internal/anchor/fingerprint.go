// Package anchor commits tamper-evident fingerprints of high-confidence
// malicious verdicts to an external append-only ledger, detached from the
// scan request path. A missed anchor is an acceptable, logged gap — never a
// scan failure.
package anchor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Fingerprint computes the deterministic content hash anchored to the
// ledger: SHA-256 over eventID:tenantID:severity:captureTimestampMillis,
// hex with a 0x prefix.
func Fingerprint(eventID, tenantID string, severity int, capturedAt time.Time) string {
	data := fmt.Sprintf("%s:%s:%d:%d", eventID, tenantID, severity, capturedAt.UnixMilli())
	sum := sha256.Sum256([]byte(data))
	return "0x" + hex.EncodeToString(sum[:])
}
