package repository

import (
	"context"

	"jetlag-mailcast/internal/domain/entity"
)

// MailSender delivers a single e-mail. Failures should be *entity.DeliveryError.
type MailSender interface {
	Send(ctx context.Context, msg *entity.MailMessage) error
}
