package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus is the subscription lifecycle state of a profile.
// Quota tiering derives from it: active gets the paid daily limit, every
// other status gets the free one.
type SubscriptionStatus string

const (
	StatusFree      SubscriptionStatus = "free"
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case StatusFree, StatusActive, StatusPastDue, StatusCancelled:
		return true
	}
	return false
}

// Paid reports whether the status grants the paid daily limit.
func (s SubscriptionStatus) Paid() bool {
	return s == StatusActive
}

type UserProfile struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	IdentityKey string       `gorm:"not null;uniqueIndex:ux_user_profiles_identity_key" json:"identity_key"`
	Email       string       `gorm:"not null" json:"email"`

	BillingCustomerID     *string `gorm:"index" json:"billing_customer_id,omitempty"`
	BillingSubscriptionID *string `json:"billing_subscription_id,omitempty"`

	SubscriptionStatus SubscriptionStatus `gorm:"not null;default:free" json:"subscription_status"`
	DailyQuestionLimit int                `gorm:"not null;default:5" json:"daily_question_limit"`

	// LastEventAt is the provider timestamp of the most recent billing
	// event applied to this profile. Events older than it are stale and
	// must not be applied.
	LastEventAt *time.Time `json:"last_event_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
