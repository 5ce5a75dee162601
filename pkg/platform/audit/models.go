package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// Stores and publishers use it for routing and retention.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance, such as a
	// citizen downloading a decision letter. Persisted synchronously.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authentication failures and revoked assertions.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine reads. May be buffered.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	// ID identifies the event across sinks. Stores assign one when empty.
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// Subject is a display form of the citizen (a masked BSN), never the raw number.
	Subject string
	// SubjectIDHash is a SHA-256 of the raw BSN for traceability without PII.
	SubjectIDHash string
	Action        string
	Decision      string
	Reason        string
	RequestID     string
	ClientIP      string
	// ClientSummary is a short browser/platform description derived from the User-Agent.
	ClientSummary string
	// Count carries the number of records involved, e.g. entitlements returned.
	Count int
}

type AuditEvent string

const (
	EventProvisionsViewed   AuditEvent = "provisions_viewed"
	EventDocumentDownloaded AuditEvent = "document_downloaded"
	EventAuthFailed         AuditEvent = "auth_failed"
	EventRevokedTokenUsed   AuditEvent = "revoked_token_used"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventDocumentDownloaded: CategoryCompliance,
	EventAuthFailed:         CategorySecurity,
	EventRevokedTokenUsed:   CategorySecurity,
	EventProvisionsViewed:   CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// HashSubject returns the hex SHA-256 of a subject identifier.
func HashSubject(subjectID string) string {
	if subjectID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(subjectID))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
