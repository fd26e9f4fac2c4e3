package domain

import "time"

// Audit action tags
const (
	AuditActionLeaseSent                = "LEASE_SENT"
	AuditActionAddendumSent             = "ADDENDUM_SENT"
	AuditActionSigningLinkOpened        = "SIGNING_LINK_OPENED"
	AuditActionSigningLinkResent        = "SIGNING_LINK_RESENT"
	AuditActionSignatureSubmitted       = "SIGNATURE_SUBMITTED"
	AuditActionAllPartiesSigned         = "ALL_PARTIES_SIGNED"
	AuditActionLandlordCountersigned    = "LANDLORD_COUNTERSIGNED"
	AuditActionDocumentRegenerated      = "DOCUMENT_REGENERATED"
	AuditActionSignedDocumentDownloaded = "SIGNED_DOCUMENT_DOWNLOADED"
	AuditActionLeaseTerminated          = "LEASE_TERMINATED"
	AuditActionAddendumVoided           = "ADDENDUM_VOIDED"
)

// Audit entity types
const (
	AuditEntityLease    = "lease"
	AuditEntityAddendum = "lease_addendum"
)

// SystemActor is recorded when no human actor drove the event
const SystemActor = "system"

// AuditLogEntry is an append-only record of signing activity. Entries are
// never updated or deleted; they are the sole source of truth for the
// anomaly engine and for legal audit trails.
type AuditLogEntry struct {
	ID         string                 `json:"id"`
	OrgID      string                 `json:"org_id"`
	ActorID    string                 `json:"actor_id"` // signer/tenant id, staff id or "system"
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Changes    map[string]interface{} `json:"changes,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}
