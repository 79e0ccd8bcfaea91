package subscription

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/healthparse/landing/profile"

	extErrors "github.com/pkg/errors"
	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap"
)

// Payments is the subset of the Stripe API the subscription flows use
type Payments interface {
	PriceByLookupKey(ctx context.Context, lookupKey string) (*stripe.Price, error)
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	NewPortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// Profiles is the profile store as seen by the subscription flows
type Profiles interface {
	Ensure(ctx context.Context, userID, email string) error
	SetCustomerID(ctx context.Context, userID, customerID string) error
	GetByUserID(ctx context.Context, userID string) (*profile.Profile, error)
	UserIDByCustomerID(ctx context.Context, customerID string) (string, error)
}

// Store is the subscription record store
type Store interface {
	Upsert(ctx context.Context, s *Subscription) error
	UpdateStatus(ctx context.Context, subscriptionID string, u Update) (bool, error)
}

// TrialEndingHook is called for customer.subscription.trial_will_end events
type TrialEndingHook func(ctx context.Context, sub *stripe.Subscription)

// Result is what Reconcile did with an event
type Result struct {
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// ReconcilerOptions contains the collaborators of the Reconciler
type ReconcilerOptions struct {
	Payments Payments
	Profiles Profiles
	Store    Store
	Logger   *zap.Logger

	TrialEndingHooks []TrialEndingHook
}

// Reconciler applies verified Stripe events to the profile and subscription records
type Reconciler struct {
	ReconcilerOptions
}

// NewReconciler returns a Reconciler
func NewReconciler(option ReconcilerOptions) (*Reconciler, error) {
	if option.Payments == nil {
		return nil, fmt.Errorf("nil Payments is invalid")
	}
	if option.Profiles == nil {
		return nil, fmt.Errorf("nil Profiles is invalid")
	}
	if option.Store == nil {
		return nil, fmt.Errorf("nil Store is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Reconciler{
		ReconcilerOptions: option,
	}, nil
}

func skipped(reason string) Result {
	return Result{Action: ActionSkipped, Reason: reason}
}

// Reconcile applies event, which must already be verified. Inconsistent data is logged and
// reported as skipped with a nil error; an error means a store or Stripe call failed.
func (r *Reconciler) Reconcile(ctx context.Context, event stripe.Event) (Result, error) {
	logger := r.Logger.With(
		zap.String("EventID", event.ID),
		zap.String("EventType", event.Type),
	)
	if event.Data == nil {
		logger.Warn("Event has no data")
		return skipped("event has no data"), nil
	}

	switch kind := KindFromType(event.Type); kind {
	case KindCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			logger.Warn("Cannot parse checkout session", zap.Error(err))
			return skipped("malformed checkout session"), nil
		}
		return r.checkoutCompleted(ctx, logger, &session)

	case KindSubscriptionCreated, KindSubscriptionUpdated, KindSubscriptionDeleted, KindTrialWillEnd:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			logger.Warn("Cannot parse subscription", zap.Error(err))
			return skipped("malformed subscription"), nil
		}
		if sub.ID == "" {
			logger.Warn("Subscription event without id")
			return skipped("missing subscription id"), nil
		}
		logger = logger.With(
			zap.String("SubscriptionID", sub.ID),
			zap.String("Status", string(sub.Status)),
		)
		switch kind {
		case KindSubscriptionCreated:
			return r.subscriptionCreated(ctx, logger, &sub)
		case KindSubscriptionUpdated:
			cancel := sub.CancelAtPeriodEnd
			return r.updateStatus(ctx, logger, sub.ID, Update{
				Status:            string(sub.Status),
				Plan:              PlanName(&sub),
				CurrentPeriodEnd:  periodEnd(&sub),
				CancelAtPeriodEnd: &cancel,
			})
		case KindSubscriptionDeleted:
			return r.updateStatus(ctx, logger, sub.ID, Update{
				Status: string(sub.Status),
			})
		default:
			logger.Info("Subscription trial will end")
			for _, hook := range r.TrialEndingHooks {
				hook(ctx, &sub)
			}
			return Result{Action: ActionIgnored}, nil
		}

	case KindEntitlementSummaryUpdated:
		logger.Info("Active entitlement summary updated",
			zap.ByteString("Summary", event.Data.Raw),
		)
		return Result{Action: ActionIgnored}, nil

	default:
		logger.Info("Unhandled event type")
		return Result{Action: ActionIgnored, Reason: "unhandled event type"}, nil
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, logger *zap.Logger, session *stripe.CheckoutSession) (Result, error) {
	userID := session.ClientReferenceID
	customer := customerID(session.Customer)
	logger = logger.With(
		zap.String("UserID", userID),
		zap.String("CustomerID", customer),
	)
	if userID == "" {
		logger.Warn("Checkout session completed without client_reference_id")
		return skipped("missing client_reference_id"), nil
	}
	if customer == "" {
		logger.Warn("Checkout session completed without customer")
		return skipped("missing customer"), nil
	}

	if err := r.Profiles.SetCustomerID(ctx, userID, customer); err != nil {
		return Result{}, extErrors.Wrap(err, "Cannot record customer of checkout session")
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		logger.Info("Checkout session completed")
		return Result{Action: ActionUpdated}, nil
	}

	sub, err := r.Payments.GetSubscription(ctx, session.Subscription.ID)
	if err != nil {
		return Result{}, err
	}
	record := fromStripe(userID, sub)
	if record.StripeCustomerID == "" {
		record.StripeCustomerID = customer
	}
	if err := r.Store.Upsert(ctx, record); err != nil {
		return Result{}, err
	}
	logger.Info("Checkout session completed",
		zap.String("SubscriptionID", sub.ID),
	)
	return Result{Action: ActionUpserted}, nil
}

func (r *Reconciler) subscriptionCreated(ctx context.Context, logger *zap.Logger, sub *stripe.Subscription) (Result, error) {
	customer := customerID(sub.Customer)
	logger = logger.With(zap.String("CustomerID", customer))
	if customer == "" {
		logger.Warn("Subscription without customer")
		return skipped("missing customer"), nil
	}

	userID, err := r.Profiles.UserIDByCustomerID(ctx, customer)
	if err != nil {
		return Result{}, err
	}
	if userID == "" {
		logger.Warn("No profile found for customer")
		return skipped("no profile for customer"), nil
	}

	if err := r.Store.Upsert(ctx, fromStripe(userID, sub)); err != nil {
		return Result{}, err
	}
	logger.Info("Subscription created", zap.String("UserID", userID))
	return Result{Action: ActionUpserted}, nil
}

func (r *Reconciler) updateStatus(ctx context.Context, logger *zap.Logger, subscriptionID string, u Update) (Result, error) {
	found, err := r.Store.UpdateStatus(ctx, subscriptionID, u)
	if err != nil {
		return Result{}, err
	}
	if !found {
		logger.Warn("No subscription record to update")
		return skipped("no subscription record"), nil
	}
	logger.Info("Subscription status updated")
	return Result{Action: ActionUpdated}, nil
}
