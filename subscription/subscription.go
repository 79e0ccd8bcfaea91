package subscription

import "time"

// Subscription mirrors a Stripe subscription for a user. StripeSubscriptionID is the idempotency key of every write.
type Subscription struct {
	ID                   uint       `json:"-" gorm:"primaryKey"`
	UserID               string     `json:"userId" gorm:"index"`
	StripeCustomerID     string     `json:"stripeCustomerId" gorm:"index"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId" gorm:"uniqueIndex;not null"`
	Status               string     `json:"status"`
	Plan                 *string    `json:"plan"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd"`
	CancelAtPeriodEnd    bool       `json:"cancelAtPeriodEnd"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// TableName pins the table shared with the identity provider's data store
func (Subscription) TableName() string {
	return "subscriptions"
}

// Update carries the fields an event may change on an existing record. Nil fields are left alone.
type Update struct {
	Status            string
	Plan              *string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd *bool
}
