package subscription

// EventKind is the closed set of Stripe event types the reconciler acts on
type EventKind int

// Every type outside the set parses to KindUnknown
const (
	KindUnknown EventKind = iota
	KindCheckoutCompleted
	KindSubscriptionCreated
	KindSubscriptionUpdated
	KindSubscriptionDeleted
	KindTrialWillEnd
	KindEntitlementSummaryUpdated
)

var eventKinds = map[string]EventKind{
	"checkout.session.completed":                     KindCheckoutCompleted,
	"customer.subscription.created":                  KindSubscriptionCreated,
	"customer.subscription.updated":                  KindSubscriptionUpdated,
	"customer.subscription.deleted":                  KindSubscriptionDeleted,
	"customer.subscription.trial_will_end":           KindTrialWillEnd,
	"entitlements.active_entitlement_summary.updated": KindEntitlementSummaryUpdated,
}

// KindFromType parses a Stripe event type
func KindFromType(eventType string) EventKind {
	return eventKinds[eventType]
}

func (k EventKind) String() string {
	for t, kind := range eventKinds {
		if kind == k {
			return t
		}
	}
	return "unknown"
}

// Action tells the webhook sender what the reconciler did with an event
type Action string

// Defining constants
const (
	ActionUpserted Action = "upserted"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
	ActionIgnored  Action = "ignored"
)
