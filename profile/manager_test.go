package profile

import (
	"context"
	"testing"

	"github.com/healthparse/landing/db/dbtest"

	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(zaptest.NewLogger(t), dbtest.New(t))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestNewManagerValidates(t *testing.T) {
	if _, err := NewManager(nil, nil); err == nil {
		t.Fatal("expected error for nil Logger")
	}
	if _, err := NewManager(zaptest.NewLogger(t), nil); err == nil {
		t.Fatal("expected error for nil DB")
	}
}

func TestSetCustomerIDUpserts(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.SetCustomerID(ctx, "user-1", "cus_A"); err != nil {
		t.Fatalf("SetCustomerID: %v", err)
	}
	if err := m.SetCustomerID(ctx, "user-1", "cus_B"); err != nil {
		t.Fatalf("SetCustomerID again: %v", err)
	}

	p, err := m.GetByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if p == nil || p.StripeCustomerID == nil || *p.StripeCustomerID != "cus_B" {
		t.Fatalf("profile = %+v, want customer cus_B", p)
	}

	var count int64
	m.db.Model(&Profile{}).Count(&count)
	if count != 1 {
		t.Errorf("profiles = %d, want 1", count)
	}
}

func TestEnsureKeepsCustomer(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.SetCustomerID(ctx, "user-1", "cus_A"); err != nil {
		t.Fatalf("SetCustomerID: %v", err)
	}
	if err := m.Ensure(ctx, "user-1", "a@example.com"); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := m.Ensure(ctx, "user-1", ""); err != nil {
		t.Fatalf("Ensure without email: %v", err)
	}

	p, err := m.GetByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if p.Email != "a@example.com" {
		t.Errorf("email = %q", p.Email)
	}
	if p.StripeCustomerID == nil || *p.StripeCustomerID != "cus_A" {
		t.Errorf("customer id lost: %+v", p.StripeCustomerID)
	}
}

func TestEnsureCreates(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.Ensure(ctx, "user-2", ""); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	p, err := m.GetByUserID(ctx, "user-2")
	if err != nil || p == nil {
		t.Fatalf("GetByUserID = %+v, %v", p, err)
	}
	if p.StripeCustomerID != nil {
		t.Errorf("new profile should have no customer, got %q", *p.StripeCustomerID)
	}
	if err := m.Ensure(ctx, "", ""); err == nil {
		t.Error("expected error for empty user id")
	}
}

func TestUserIDByCustomerID(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	if err := m.SetCustomerID(ctx, "user-1", "cus_A"); err != nil {
		t.Fatalf("SetCustomerID: %v", err)
	}

	uid, err := m.UserIDByCustomerID(ctx, "cus_A")
	if err != nil || uid != "user-1" {
		t.Errorf("UserIDByCustomerID(cus_A) = %q, %v", uid, err)
	}
	uid, err = m.UserIDByCustomerID(ctx, "cus_missing")
	if err != nil || uid != "" {
		t.Errorf("UserIDByCustomerID(cus_missing) = %q, %v", uid, err)
	}
	p, err := m.GetByUserID(ctx, "nobody")
	if err != nil || p != nil {
		t.Errorf("GetByUserID(nobody) = %+v, %v", p, err)
	}
}

func TestCustomerBelongsToOneProfile(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)

	// profiles without a customer don't collide
	for _, id := range []string{"user-1", "user-2"} {
		if err := m.Ensure(ctx, id, id+"@example.com"); err != nil {
			t.Fatalf("Ensure(%s): %v", id, err)
		}
	}
	if err := m.SetCustomerID(ctx, "user-1", "cus_A"); err != nil {
		t.Fatalf("SetCustomerID: %v", err)
	}
	if err := m.SetCustomerID(ctx, "user-2", "cus_A"); err == nil {
		t.Fatal("expected error when a second profile claims the same customer")
	}

	uid, err := m.UserIDByCustomerID(ctx, "cus_A")
	if err != nil || uid != "user-1" {
		t.Errorf("UserIDByCustomerID(cus_A) = %q, %v", uid, err)
	}
}
