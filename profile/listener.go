package profile

import (
	"context"

	"github.com/healthparse/landing/auth"

	"go.uber.org/zap"
)

// OnSession keeps a profile row for every user that signs in.
// Subscribe it with auth.Listeners.Subscribe(m.OnSession).
func (m *Manager) OnSession(ctx context.Context, event auth.Event, user *auth.User) {
	if event != auth.EventSignedIn || user == nil || user.ID == "" {
		return
	}
	if err := m.Ensure(ctx, user.ID, user.Email); err != nil {
		m.logger.Error("Unable to create profile on sign in",
			zap.String("UserID", user.ID),
			zap.Error(err),
		)
	}
}
