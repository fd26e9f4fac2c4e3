package dto

import "time"

// Verification overall status values
const (
	VerificationStatusComplete = "complete"
	VerificationStatusPending  = "pending"
	VerificationStatusExpired  = "expired"
)

// Anomaly type tags
const (
	AnomalyShortView       = "short_view_duration"
	AnomalyRepeatedAttempt = "repeated_submission_attempts"
)

// SignerReport is one roster line in a verification report
type SignerReport struct {
	Role            string     `json:"role"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Signed          bool       `json:"signed"`
	SignedAt        *time.Time `json:"signed_at,omitempty"`
	FingerprintID   string     `json:"fingerprint_id,omitempty"`
	IPAddress       string     `json:"ip_address,omitempty"`
	Location        string     `json:"location,omitempty"`
	ViewTimeSeconds int        `json:"view_time_seconds"`
}

// AuditEvent is one audit trail line in a verification report
type AuditEvent struct {
	Action    string                 `json:"action"`
	ActorID   string                 `json:"actor_id"`
	IPAddress string                 `json:"ip_address,omitempty"`
	Changes   map[string]interface{} `json:"changes,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Anomaly flags a suspicious pattern found in the signing evidence
type Anomaly struct {
	Type       string `json:"type"`
	SignerName string `json:"signer_name,omitempty"`
	Detail     string `json:"detail"`
}

// VerificationReport summarizes a document's integrity, signer roster, audit
// trail and detected anomalies
type VerificationReport struct {
	EntityType   string         `json:"entity_type"`
	EntityID     string         `json:"entity_id"`
	Status       string         `json:"status"`
	HashVerified bool           `json:"hash_verified"`
	DocumentHash string         `json:"document_hash,omitempty"`
	Signers      []SignerReport `json:"signers"`
	AuditTrail   []AuditEvent   `json:"audit_trail"`
	Anomalies    []Anomaly      `json:"anomalies"`
	GeneratedAt  time.Time      `json:"generated_at"`
}
