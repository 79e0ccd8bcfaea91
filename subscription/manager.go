package subscription

import (
	"context"
	"fmt"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager handles the database operations relating to Subscriptions
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for subscription records
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Subscription{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initilize subscription.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Upsert inserts the record or overwrites the one with the same stripe_subscription_id
func (m *Manager) Upsert(ctx context.Context, s *Subscription) error {
	if s == nil || len(s.StripeSubscriptionID) == 0 {
		return fmt.Errorf("StripeSubscriptionID is required")
	}
	result := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_customer_id",
			"status",
			"plan",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(s)
	if result.Error != nil {
		m.logger.Error("Unable to upsert subscription in database",
			zap.String("SubscriptionID", s.StripeSubscriptionID),
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot upsert subscription")
	}
	return nil
}

// UpdateStatus applies u to the record of subscriptionID. It never creates a record;
// found is false when there was nothing to update.
func (m *Manager) UpdateStatus(ctx context.Context, subscriptionID string, u Update) (found bool, err error) {
	if len(subscriptionID) == 0 {
		return false, fmt.Errorf("subscriptionID is required")
	}
	updates := map[string]interface{}{
		"status": u.Status,
	}
	if u.Plan != nil {
		updates["plan"] = *u.Plan
	}
	if u.CurrentPeriodEnd != nil {
		updates["current_period_end"] = *u.CurrentPeriodEnd
	}
	if u.CancelAtPeriodEnd != nil {
		updates["cancel_at_period_end"] = *u.CancelAtPeriodEnd
	}

	result := m.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("stripe_subscription_id = ?", subscriptionID).
		Updates(updates)
	if result.Error != nil {
		m.logger.Error("Unable to update subscription in database",
			zap.String("SubscriptionID", subscriptionID),
			zap.Error(result.Error),
		)
		return false, extErrors.Wrap(result.Error, "Cannot update subscription")
	}
	return result.RowsAffected > 0, nil
}

// GetBySubscriptionID returns the record of a Stripe subscription, nil if there is none
func (m *Manager) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var s Subscription
	result := m.db.WithContext(ctx).
		Where("stripe_subscription_id = ?", subscriptionID).
		Limit(1).
		Find(&s)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get subscription")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &s, nil
}

// ListByUser returns the subscriptions of a user, newest first
func (m *Manager) ListByUser(ctx context.Context, userID string) ([]Subscription, error) {
	if len(userID) == 0 {
		return nil, fmt.Errorf("userID is required")
	}
	results := make([]Subscription, 0, 1)
	result := m.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&results)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot list subscriptions")
	}
	return results, nil
}
