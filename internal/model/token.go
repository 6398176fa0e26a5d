package model

import (
	"time"

	"github.com/google/uuid"
)

// Platform is the delivery channel a push token belongs to.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return true
	}
	return false
}

// PushToken is one registered destination. A user holds at most one
// entry per platform; re-registration overwrites.
type PushToken struct {
	UserID   uuid.UUID `db:"user_id" json:"userId"`
	Platform Platform  `db:"platform" json:"platform"`
	Token    string    `db:"token" json:"token"`
	DeviceID string    `db:"device_id" json:"deviceId,omitempty"`
	AddedAt  time.Time `db:"added_at" json:"addedAt"`
}
