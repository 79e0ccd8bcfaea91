package subscription

import (
	"time"

	"github.com/stripe/stripe-go/v72"
)

// PlanName derives the plan of a subscription from its first line item:
// the plan nickname, else the price nickname, else the price id. Nil when there are no items.
func PlanName(sub *stripe.Subscription) *string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	item := sub.Items.Data[0]
	if item == nil {
		return nil
	}
	if item.Plan != nil && item.Plan.Nickname != "" {
		return stripe.String(item.Plan.Nickname)
	}
	if item.Price == nil {
		return nil
	}
	if item.Price.Nickname != "" {
		return stripe.String(item.Price.Nickname)
	}
	if item.Price.ID != "" {
		return stripe.String(item.Price.ID)
	}
	return nil
}

func periodEnd(sub *stripe.Subscription) *time.Time {
	if sub.CurrentPeriodEnd == 0 {
		return nil
	}
	t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	return &t
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// fromStripe builds the record of sub owned by userID
func fromStripe(userID string, sub *stripe.Subscription) *Subscription {
	return &Subscription{
		UserID:               userID,
		StripeCustomerID:     customerID(sub.Customer),
		StripeSubscriptionID: sub.ID,
		Status:               string(sub.Status),
		Plan:                 PlanName(sub),
		CurrentPeriodEnd:     periodEnd(sub),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
	}
}
