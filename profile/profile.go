package profile

import "time"

// Profile joins an identity provider user to a Stripe customer
type Profile struct {
	UserID           string    `json:"userId" gorm:"primaryKey"`
	Email            string    `json:"email"`
	StripeCustomerID *string   `json:"stripeCustomerId" gorm:"uniqueIndex"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// TableName pins the table shared with the identity provider's data store
func (Profile) TableName() string {
	return "profiles"
}
