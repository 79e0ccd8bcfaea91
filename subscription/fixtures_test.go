package subscription

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/healthparse/landing/db/dbtest"
	"github.com/healthparse/landing/profile"

	"github.com/stripe/stripe-go/v72"
	"go.uber.org/zap/zaptest"
)

const testWebhookSecret = "whsec_test_secret"

type mockPayments struct {
	PriceByLookupKeyFunc   func(ctx context.Context, lookupKey string) (*stripe.Price, error)
	NewCheckoutSessionFunc func(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSessionFunc func(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	NewPortalSessionFunc   func(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error)
	GetSubscriptionFunc    func(ctx context.Context, id string) (*stripe.Subscription, error)
}

var errNotMocked = errors.New("not mocked")

func (m *mockPayments) PriceByLookupKey(ctx context.Context, lookupKey string) (*stripe.Price, error) {
	if m.PriceByLookupKeyFunc != nil {
		return m.PriceByLookupKeyFunc(ctx, lookupKey)
	}
	return nil, errNotMocked
}

func (m *mockPayments) NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if m.NewCheckoutSessionFunc != nil {
		return m.NewCheckoutSessionFunc(ctx, params)
	}
	return nil, errNotMocked
}

func (m *mockPayments) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	if m.GetCheckoutSessionFunc != nil {
		return m.GetCheckoutSessionFunc(ctx, id)
	}
	return nil, errNotMocked
}

func (m *mockPayments) NewPortalSession(ctx context.Context, customerID, returnURL string) (*stripe.BillingPortalSession, error) {
	if m.NewPortalSessionFunc != nil {
		return m.NewPortalSessionFunc(ctx, customerID, returnURL)
	}
	return nil, errNotMocked
}

func (m *mockPayments) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, id)
	}
	return nil, errNotMocked
}

type fixture struct {
	payments   *mockPayments
	profiles   *profile.Manager
	manager    *Manager
	reconciler *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db := dbtest.New(t)

	profiles, err := profile.NewManager(logger, db)
	if err != nil {
		t.Fatalf("profile.NewManager: %v", err)
	}
	manager, err := NewManager(logger, db)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	payments := &mockPayments{}
	reconciler, err := NewReconciler(ReconcilerOptions{
		Payments: payments,
		Profiles: profiles,
		Store:    manager,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewReconciler: %v", err)
	}
	return &fixture{
		payments:   payments,
		profiles:   profiles,
		manager:    manager,
		reconciler: reconciler,
	}
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.manager.db.Model(&Subscription{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func subscriptionObject(id, customer, status, nickname string) map[string]interface{} {
	return map[string]interface{}{
		"id":                   id,
		"object":               "subscription",
		"customer":             customer,
		"status":               status,
		"current_period_end":   1893456000,
		"cancel_at_period_end": false,
		"items": map[string]interface{}{
			"object": "list",
			"data": []interface{}{
				map[string]interface{}{
					"id":     "si_" + id,
					"object": "subscription_item",
					"price": map[string]interface{}{
						"id":       "price_monthly",
						"object":   "price",
						"nickname": nickname,
					},
				},
			},
		},
	}
}

func eventPayload(t *testing.T, id, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data": map[string]interface{}{
			"object": object,
		},
	})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	return payload
}

func newEvent(t *testing.T, eventType string, object map[string]interface{}) stripe.Event {
	t.Helper()
	var e stripe.Event
	if err := json.Unmarshal(eventPayload(t, "evt_test", eventType, object), &e); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	return e
}

func stripeSubscription(t *testing.T, object map[string]interface{}) *stripe.Subscription {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var s stripe.Subscription
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	return &s
}

// signature builds a Stripe-Signature header for payload
func signature(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
