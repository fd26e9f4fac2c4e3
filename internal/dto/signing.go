package dto

import "time"

// CreateLeaseRequest creates a draft lease with its tenant signing slots
type CreateLeaseRequest struct {
	UnitID          string    `json:"unit_id" binding:"required"`
	Terms           string    `json:"terms" binding:"required"`
	MonthlyRent     float64   `json:"monthly_rent" binding:"required,gt=0"`
	StartDate       time.Time `json:"start_date" binding:"required"`
	EndDate         time.Time `json:"end_date" binding:"required"`
	TenantIDs       []string  `json:"tenant_ids" binding:"required,min=1"`
	PrimaryTenantID string    `json:"primary_tenant_id"`
}

// CreateAddendumRequest creates a draft addendum on an existing lease. Either
// inline content or an uploaded file reference is supplied, not both.
type CreateAddendumRequest struct {
	Title           string  `json:"title" binding:"required"`
	Content         string  `json:"content"`
	UploadedFileURL *string `json:"uploaded_file_url"`
}

// ResendLinkRequest re-issues the signing link for one signer
type ResendLinkRequest struct {
	TenantID string `json:"tenant_id" binding:"required"`
}

// SignatureSubmission is the evidence payload a signer posts when signing.
// The interaction timestamps are client-reported and stored as evidence only.
type SignatureSubmission struct {
	FullName       string `json:"full_name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	SignatureImage string `json:"signature_image"`

	ScreenSize string `json:"screen_size"`
	Timezone   string `json:"timezone"`
	Locale     string `json:"locale"`

	PageOpenedAt         *time.Time  `json:"page_opened_at"`
	DocumentViewedAt     *time.Time  `json:"document_viewed_at"`
	ScrolledToBottomAt   *time.Time  `json:"scrolled_to_bottom_at"`
	ConsentCheckedAt     []time.Time `json:"consent_checked_at"`
	NameTypedAt          *time.Time  `json:"name_typed_at"`
	TotalViewTimeSeconds int         `json:"total_view_time_seconds" binding:"gte=0"`
}

// SigningPageResponse is what the public signing page renders from
type SigningPageResponse struct {
	DocumentKind        string     `json:"document_kind"`
	DocumentID          string     `json:"document_id"`
	DocumentURL         string     `json:"document_url,omitempty"`
	DocumentHash        string     `json:"document_hash,omitempty"`
	SignerName          string     `json:"signer_name"`
	SignerEmail         string     `json:"signer_email"`
	Status              string     `json:"status"`
	RemainingSignatures int        `json:"remaining_signatures"`
	TokenExpiresAt      *time.Time `json:"token_expires_at,omitempty"`
}

// SubmitSignatureResponse is the signer's receipt for a submission
type SubmitSignatureResponse struct {
	Completed           bool      `json:"completed"`
	Status              string    `json:"status"`
	RemainingSignatures int       `json:"remaining_signatures"`
	DocumentURL         string    `json:"document_url,omitempty"`
	FingerprintID       string    `json:"fingerprint_id"`
	SignedAt            time.Time `json:"signed_at"`
}
