package store

import "time"

type TestStatus string

const (
	StatusDraft     TestStatus = "draft"
	StatusRunning   TestStatus = "running"
	StatusCompleted TestStatus = "completed"
	StatusCancelled TestStatus = "cancelled"
)

// Terminal reports whether no further status transitions are allowed.
func (s TestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type EmailType string

const (
	EmailInterviewInvite EmailType = "interview_invite"
	EmailJobMatch        EmailType = "job_match"
	EmailCustom          EmailType = "custom"
)

func (t EmailType) Valid() bool {
	switch t {
	case EmailInterviewInvite, EmailJobMatch, EmailCustom:
		return true
	}
	return false
}

// EventKind identifies an engagement counter on a variant. "sent" has its
// own recording path (RecordSent) but shares the kind namespace so transport
// payloads can carry any counter event uniformly.
type EventKind string

const (
	EventSent       EventKind = "sent"
	EventOpen       EventKind = "open"
	EventClick      EventKind = "click"
	EventReply      EventKind = "reply"
	EventConversion EventKind = "conversion"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventSent, EventOpen, EventClick, EventReply, EventConversion:
		return true
	}
	return false
}

type Test struct {
	ID        int64
	OwnerID   int64
	Name      string
	EmailType EmailType
	Status    TestStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Variant struct {
	ID                int64
	TestID            int64
	Label             string
	Subject           string
	Body              string
	TrafficAllocation int // 0-100; sums to 100 per test until promotion

	SentCount       int
	OpenCount       int
	ClickCount      int
	ReplyCount      int
	ConversionCount int

	// Integer percentages derived from the counters above.
	OpenRate       int
	ClickRate      int
	ReplyRate      int
	ConversionRate int

	IsWinner  bool
	CreatedAt time.Time
}

// ConversionProportion returns the exact conversion proportion, unrounded.
// Winner evaluation orders variants by this rather than the stored rate so
// near-ties do not flap on rounding.
func (v *Variant) ConversionProportion() float64 {
	if v.SentCount == 0 {
		return 0
	}
	return float64(v.ConversionCount) / float64(v.SentCount)
}

// VariantSpec describes one variant at test-creation time.
type VariantSpec struct {
	Label             string
	Subject           string
	Body              string
	TrafficAllocation int
}

// Snapshot is an immutable point-in-time copy of one variant's metrics,
// plus the highest confidence level observed against any sibling variant.
type Snapshot struct {
	ID        int64
	TestID    int64
	VariantID int64

	SentCount       int
	OpenCount       int
	ClickCount      int
	ReplyCount      int
	ConversionCount int

	OpenRate       int
	ClickRate      int
	ReplyRate      int
	ConversionRate int

	ConfidenceLevel int // 0-100
	CreatedAt       time.Time
}
