package adapter

import (
	"context"

	"billing-user/internal/domain/model"
)

// EmailNotifier sends transactional emails. Template choice and
// localization belong to the implementation.
type EmailNotifier interface {
	SendUpgradeConfirmation(ctx context.Context, n *model.UpgradeNotice) error
	SendAdminUpgrade(ctx context.Context, n *model.AdminUpgradeNotice) error
}

// Alerter posts operational messages to a chat channel.
type Alerter interface {
	Send(ctx context.Context, text string) error
}
