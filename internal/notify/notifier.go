package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rentflow/leasesign/pkg/logger"
)

// SigningRequest carries everything a delivery channel needs to reach a signer.
type SigningRequest struct {
	RecipientName  string
	RecipientEmail string
	DocumentKind   string // "lease" or "addendum"
	DocumentID     string
	SigningURL     string
}

// SignatureConfirmation acknowledges one captured signature back to the
// signer who produced it.
type SignatureConfirmation struct {
	RecipientName  string
	RecipientEmail string
	DocumentKind   string
	DocumentID     string
	FingerprintID  string
	SignedAt       time.Time
}

// CompletionNotice tells interested parties that a document reached its
// fully-signed state.
type CompletionNotice struct {
	DocumentKind   string
	DocumentID     string
	DocumentURL    string
	RecipientEmail string
}

// Notifier delivers signing-related messages. Delivery is best-effort and
// fire-and-forget; a failed notification never rolls back a signature.
type Notifier interface {
	SendSigningRequest(ctx context.Context, req *SigningRequest) error
	SendSignatureConfirmation(ctx context.Context, conf *SignatureConfirmation) error
	SendCompletionNotice(ctx context.Context, notice *CompletionNotice) error
}

// LogNotifier writes notifications to the application log. It stands in for
// an email or SMS provider in development and tests.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// SendSigningRequest logs the signing link delivery
func (n *LogNotifier) SendSigningRequest(ctx context.Context, req *SigningRequest) error {
	logger.InfoCtx(ctx, "signing request notification",
		zap.String("recipient", req.RecipientEmail),
		zap.String("document_kind", req.DocumentKind),
		zap.String("document_id", req.DocumentID),
		zap.String("signing_url", req.SigningURL),
	)
	return nil
}

// SendSignatureConfirmation logs the confirmation delivery
func (n *LogNotifier) SendSignatureConfirmation(ctx context.Context, conf *SignatureConfirmation) error {
	logger.InfoCtx(ctx, "signature confirmation notification",
		zap.String("recipient", conf.RecipientEmail),
		zap.String("document_kind", conf.DocumentKind),
		zap.String("document_id", conf.DocumentID),
		zap.String("fingerprint_id", conf.FingerprintID),
	)
	return nil
}

// SendCompletionNotice logs the completion delivery
func (n *LogNotifier) SendCompletionNotice(ctx context.Context, notice *CompletionNotice) error {
	logger.InfoCtx(ctx, "completion notification",
		zap.String("recipient", notice.RecipientEmail),
		zap.String("document_kind", notice.DocumentKind),
		zap.String("document_id", notice.DocumentID),
	)
	return nil
}
