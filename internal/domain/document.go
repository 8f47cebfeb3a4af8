package domain

import "time"

// DocumentType classifies an uploaded verification artifact. Registration
// requires a selfie plus one of passport or driver licence.
type DocumentType string

const (
	DocPassport      DocumentType = "passport"
	DocDriverLicense DocumentType = "driver_license"
	DocSelfie        DocumentType = "selfie"
)

// DocumentTypeLabels is the single type→label table shared by every renderer.
var DocumentTypeLabels = map[DocumentType]string{
	DocPassport:      "📄 Паспорт",
	DocDriverLicense: "🚗 Водительские права",
	DocSelfie:        "🤳 Селфи с документом",
}

// DocumentStatus tracks a reviewer's decision for one document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
	DocumentRevision DocumentStatus = "revision"
)

// DocumentStatusLabels is the single status→label table shared by every renderer.
var DocumentStatusLabels = map[DocumentStatus]string{
	DocumentPending:  "⏳ На проверке",
	DocumentApproved: "✅ Одобрен",
	DocumentRejected: "❌ Отклонен",
	DocumentRevision: "🔄 Требует доработки",
}

// Document is the durable record of a stored artifact. It never exists without
// its owning user: both rows are inserted in the same transaction.
type Document struct {
	ID               int64
	UserID           int64
	Type             DocumentType
	FilePath         string
	OriginalFilename string
	FileSize         int64
	Status           DocumentStatus
	AdminComment     string
	VerifiedBy       *int64
	UploadedAt       time.Time
	VerifiedAt       *time.Time
}
