package model

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification event and drives title/body templates
// and the delivery-channel hint. The set is advisory: kinds outside it
// are composed with generic formatting rather than rejected.
type Kind string

const (
	KindPostComment    Kind = "post_comment"
	KindCommentReply   Kind = "comment_reply"
	KindSystem         Kind = "system"
	KindGeneral        Kind = "general"
	KindEvent          Kind = "event"
	KindReferral       Kind = "referral"
	KindWarning        Kind = "warning"
	KindSuspension     Kind = "suspension"
	KindReportReceived Kind = "report_received"
	KindReportResolved Kind = "report_resolved"
	KindLike           Kind = "like"
	KindFollow         Kind = "follow"
)

// Context carries the kind-specific fields of a notification event.
// Which fields are set depends on the kind; unset fields are omitted
// from the envelope payload.
type Context struct {
	AuthorName  string `json:"authorName,omitempty"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
	BoardCode   string `json:"boardCode,omitempty"`
	PostID      string `json:"postId,omitempty"`
	CommentID   string `json:"commentId,omitempty"`
	ReportID    string `json:"reportId,omitempty"`
	Preview     string `json:"preview,omitempty"`
	Title       string `json:"title,omitempty"`
	Body        string `json:"body,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Days        int    `json:"days,omitempty"`
}

// Event is a single logical notification: one user should be told about
// one thing. It has no durability beyond the dispatch attempt.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	UserID    uuid.UUID `json:"userId"`
	Context   Context   `json:"context"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewEvent(kind Kind, userID uuid.UUID, ctx Context) *Event {
	return &Event{
		ID:        uuid.New(),
		Kind:      kind,
		UserID:    userID,
		Context:   ctx,
		CreatedAt: time.Now(),
	}
}
