// README: Provider KYC verification record and its review flow.
package kyc

import (
	"time"

	"localpro/internal/types"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type DocumentKind string

const (
	DocIDProof       DocumentKind = "id_proof"
	DocAddressProof  DocumentKind = "address_proof"
	DocSelfie        DocumentKind = "selfie"
	DocCertification DocumentKind = "certification"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case DocIDProof, DocAddressProof, DocSelfie, DocCertification:
		return true
	}
	return false
}

type Document struct {
	Kind DocumentKind `json:"kind"`
	Path string       `json:"path"`
}

// Verification is the single active KYC record of a provider. Re-submission overwrites it.
type Verification struct {
	UserID          types.ID
	Status          Status
	Documents       []Document
	RejectionReason *string
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
	ReviewedBy      *types.ID
	UpdatedAt       time.Time
}

// AllowedTransitions is the administrative review graph. Rejected records only
// leave that state through a provider re-submission.
var AllowedTransitions = map[Status][]Status{
	StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusRejected},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanResubmit reports whether a provider may overwrite a record in this state.
func CanResubmit(s Status) bool {
	return s == StatusPending || s == StatusRejected
}
