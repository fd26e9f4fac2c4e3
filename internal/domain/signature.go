package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SignatureData is the evidence record captured at signing time. It is
// written once and never mutated afterwards; only a fresh signing event on a
// different slot produces a new record.
type SignatureData struct {
	// Signer-asserted identity
	FullName string `json:"full_name"`
	Email    string `json:"email"`

	// Network and device evidence
	IPAddress  string `json:"ip_address,omitempty"`
	Location   string `json:"location,omitempty"` // coarse, e.g. "Austin, TX, US"
	UserAgent  string `json:"user_agent,omitempty"`
	ScreenSize string `json:"screen_size,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	Locale     string `json:"locale,omitempty"`

	// Client-reported interaction proof. These are evidentiary metadata only:
	// the server stores what the signer's browser reported and makes no
	// authorization decision from them. Token validity and lifecycle state
	// are the only authorization inputs.
	PageOpenedAt         *time.Time `json:"page_opened_at,omitempty"`
	DocumentViewedAt     *time.Time `json:"document_viewed_at,omitempty"`
	ScrolledToBottomAt   *time.Time `json:"scrolled_to_bottom_at,omitempty"`
	ConsentCheckedAt     []time.Time `json:"consent_checked_at,omitempty"`
	NameTypedAt          *time.Time `json:"name_typed_at,omitempty"`
	SignedAt             time.Time  `json:"signed_at"`
	TotalViewTimeSeconds int        `json:"total_view_time_seconds"`

	// Hash of the document as viewed at signing time. Later regenerations do
	// not touch this snapshot.
	DocumentHash string `json:"document_hash"`

	// SignatureImage is a data-URL raster image or a typed-name rendering
	SignatureImage string `json:"signature_image,omitempty"`

	// Fingerprint is a one-way hash over signer identity, document hash and
	// timestamp, computed exactly once at submission
	Fingerprint string `json:"fingerprint"`

	// Token provenance (empty for session-authenticated signatures)
	Token          string     `json:"token,omitempty"`
	TokenIssuedAt  *time.Time `json:"token_issued_at,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

// ComputeFingerprint derives the signature fingerprint at submission time.
// It is stored and never recomputed later; the documentHash argument is the
// parent document's hash as it stood when the signature was submitted.
func ComputeFingerprint(signerID, fullName, email, documentHash string, ts time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf(
		"%s|%s|%s|%s|%d",
		signerID, fullName, email, documentHash, ts.UnixNano(),
	)))
	return hex.EncodeToString(sum[:])
}

// FingerprintDisplayID shortens a fingerprint for human-facing reports
func FingerprintDisplayID(fingerprint string) string {
	if len(fingerprint) <= 12 {
		return fingerprint
	}
	return fingerprint[:12]
}
