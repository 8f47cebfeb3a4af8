// Package registration implements the staged registration pipeline: an
// ephemeral Redis-backed staging area, the conversation flow that fills it,
// and the committer that turns a complete staged registration into durable
// user and document rows in one transaction.
package registration

import (
	"context"
	"time"

	"velorent/internal/domain"
)

// StagingTTL bounds how long an abandoned registration survives. Every slice
// write refreshes it.
const StagingTTL = 24 * time.Hour

// PersonalData is the staged personal-fields slice.
type PersonalData struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Step names a position in the registration conversation. Persisted alongside
// the staged slices so an in-progress flow survives process restarts.
type Step string

const (
	StepNone             Step = ""
	StepChoosingLanguage Step = "choosing_language"
	StepEnteringName     Step = "entering_name"
	StepEnteringPhone    Step = "entering_phone"
	StepChoosingDocument Step = "choosing_document"
	StepAwaitingPrimary  Step = "awaiting_primary_document"
	StepAwaitingSelfie   Step = "awaiting_selfie"
	StepComplete         Step = "complete"
)

// FlowState is the persisted conversation position plus the primary-document
// variant the user picked.
type FlowState struct {
	Step           Step                `json:"step"`
	ChosenDocument domain.DocumentType `json:"chosen_document,omitempty"`
}

// StagedRegistration is one identifier's in-progress registration: three
// independently written slices sharing a TTL.
type StagedRegistration struct {
	Language  string
	Personal  PersonalData
	Documents map[domain.DocumentType]string // document type → transport artifact ref
}

// HasPrimaryDocument reports whether either primary-document variant is staged.
func (s *StagedRegistration) HasPrimaryDocument() bool {
	_, passport := s.Documents[domain.DocPassport]
	_, license := s.Documents[domain.DocDriverLicense]
	return passport || license
}

// IsComplete reports whether the staged data is sufficient to commit: name and
// phone present, a selfie ref, and at least one primary-document ref.
func (s *StagedRegistration) IsComplete() bool {
	return len(s.MissingFields()) == 0
}

// MissingFields decomposes IsComplete's negation field by field, in prompt
// order. The flow uses it to ask the user for exactly what is absent.
func (s *StagedRegistration) MissingFields() []string {
	var missing []string
	if s.Personal.FullName == "" {
		missing = append(missing, "full_name")
	}
	if s.Personal.Phone == "" {
		missing = append(missing, "phone")
	}
	if !s.HasPrimaryDocument() {
		missing = append(missing, "id_document")
	}
	if _, ok := s.Documents[domain.DocSelfie]; !ok {
		missing = append(missing, "selfie")
	}
	return missing
}

// StagingStore is the ephemeral registration store. Absence after a write is an
// infrastructure failure, never "user has no data"; callers retry.
type StagingStore interface {
	SetLanguage(ctx context.Context, telegramID int64, language string) error
	SetPersonalData(ctx context.Context, telegramID int64, data PersonalData) error
	SetDocumentRef(ctx context.Context, telegramID int64, docType domain.DocumentType, ref string) error

	// Get returns the staged registration, or sentinel.ErrNotFound when
	// nothing is staged (never written, cleared, or expired).
	Get(ctx context.Context, telegramID int64) (*StagedRegistration, error)
	IsComplete(ctx context.Context, telegramID int64) (bool, error)
	MissingFields(ctx context.Context, telegramID int64) ([]string, error)

	SetState(ctx context.Context, telegramID int64, state FlowState) error
	State(ctx context.Context, telegramID int64) (FlowState, error)

	// Clear removes all slices; idempotent.
	Clear(ctx context.Context, telegramID int64) error
	// ExtendTTL refreshes expiry on whatever is staged; no-op when nothing is.
	ExtendTTL(ctx context.Context, telegramID int64) error
}
