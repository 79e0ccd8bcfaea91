package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager handles the database operations relating to Profiles
type Manager struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewManager returns a new Manager for profiles
func NewManager(logger *zap.Logger, db *gorm.DB) (*Manager, error) {
	if logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if db == nil {
		return nil, fmt.Errorf("nil DB is invalid")
	}
	if err := db.AutoMigrate(&Profile{}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initilize profile.Manager")
	}
	return &Manager{
		db:     db,
		logger: logger,
	}, nil
}

// Ensure creates an empty profile for the user if none exists yet.
// An existing profile keeps its customer id; the email is refreshed when given.
func (m *Manager) Ensure(ctx context.Context, userID, email string) error {
	if len(userID) == 0 {
		return fmt.Errorf("userID is required")
	}
	p := &Profile{
		UserID: userID,
		Email:  email,
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}
	if len(email) > 0 {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}
	}
	result := m.db.WithContext(ctx).Clauses(onConflict).Create(p)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot ensure profile")
	}
	return nil
}

// SetCustomerID records the Stripe customer of a user, creating the profile if needed
func (m *Manager) SetCustomerID(ctx context.Context, userID, customerID string) error {
	if len(userID) == 0 {
		return fmt.Errorf("userID is required")
	}
	if len(customerID) == 0 {
		return fmt.Errorf("customerID is required")
	}
	now := time.Now()
	p := &Profile{
		UserID:           userID,
		StripeCustomerID: &customerID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	result := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"}),
	}).Create(p)
	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return extErrors.Wrap(result.Error, "Cannot set customer id on profile")
	}
	return nil
}

// GetByUserID will try to return the profile of a user, nil if there is none
func (m *Manager) GetByUserID(ctx context.Context, userID string) (*Profile, error) {
	var p Profile

	result := m.db.WithContext(ctx).First(&p, "user_id = ?", userID)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return nil, extErrors.Wrap(result.Error, "Cannot get profile by user id")
	}

	return &p, nil
}

// UserIDByCustomerID resolves a Stripe customer to its user. It returns "" when unresolved.
func (m *Manager) UserIDByCustomerID(ctx context.Context, customerID string) (string, error) {
	var p Profile

	result := m.db.WithContext(ctx).
		Select("user_id").
		Where("stripe_customer_id = ?", customerID).
		Take(&p)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return "", nil
	}

	if result.Error != nil {
		m.logger.Error("Database returned error",
			zap.Error(result.Error),
		)
		return "", extErrors.Wrap(result.Error, "Cannot get profile by customer id")
	}

	return p.UserID, nil
}
