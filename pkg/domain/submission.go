package domain

import (
	"encoding"
	"time"
)

type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "PENDING"
	StatusApproved SubmissionStatus = "APPROVED"
	StatusRejected SubmissionStatus = "REJECTED"
)

// Terminal reports whether no further status transition is allowed.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type ContributionType string

const (
	ContributionSubmit   ContributionType = "submit"
	ContributionLabel    ContributionType = "label"
	ContributionValidate ContributionType = "validate"
)

// FileDescriptor points at the uploaded artifact. The bytes themselves are
// owned by the storage collaborator; this core never dereferences the URI.
type FileDescriptor struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
}

type SubmissionMetadata struct {
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	DataType         string             `json:"dataType"`
	ContributionType ContributionType   `json:"contributionType"`
	Tags             []string           `json:"tags,omitempty"`
	License          string             `json:"license"`
	File             *FileDescriptor    `json:"file,omitempty"`
	Assessment       *QualityAssessment `json:"assessment,omitempty"`
}

type Submission struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	TaskID     string `json:"taskId,omitempty"`
	ResultHash string `json:"resultHash,omitempty"`
	StorageURI string `json:"storageUri,omitempty"`

	Status       SubmissionStatus   `json:"status"`
	QualityScore *int               `json:"qualityScore,omitempty"`
	Metadata     SubmissionMetadata `json:"metadata"`

	// ApprovalTxRef is the primary-ledger record of the review decision.
	ApprovalTxRef string `json:"approvalTxRef,omitempty"`

	// Reward bookkeeping. The three fields are independent: an APPROVED
	// submission can carry RewardError with no RewardTxRef, meaning the
	// review succeeded but the mint needs an out-of-band retry.
	RewardAmount string `json:"rewardAmount,omitempty"` // whole-unit decimal string
	RewardTxRef  string `json:"rewardTxRef,omitempty"`
	RewardError  string `json:"rewardError,omitempty"`

	// RelayTxRef proves the secondary-ledger reputation update landed.
	// Empty + StatusApproved means the submission is eligible for relay.
	RelayTxRef string `json:"relayTxRef,omitempty"`

	ReviewerID string    `json:"reviewerId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RelayEligible reports whether the submission should be picked up by the
// relay discovery sweep.
func (s *Submission) RelayEligible() bool {
	return s.Status == StatusApproved && s.RelayTxRef == ""
}

var (
	_ encoding.BinaryMarshaler = SubmissionStatus("")
	_ encoding.TextMarshaler   = SubmissionStatus("")
	_ encoding.BinaryMarshaler = ContributionType("")
	_ encoding.TextMarshaler   = ContributionType("")
)

func (s SubmissionStatus) MarshalBinary() ([]byte, error) { return []byte(string(s)), nil }
func (s SubmissionStatus) MarshalText() ([]byte, error)   { return []byte(string(s)), nil }

func (c ContributionType) MarshalBinary() ([]byte, error) { return []byte(string(c)), nil }
func (c ContributionType) MarshalText() ([]byte, error)   { return []byte(string(c)), nil }
