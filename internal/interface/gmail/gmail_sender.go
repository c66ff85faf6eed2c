package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/internal/interface/mailer"
	"jetlag-mailcast/pkg/logger"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const transportGmail = "gmail"

// GmailSender sends mail through the Gmail API as the authorised user
type GmailSender struct {
	gmailService *gmail.Service
	logger       logger.Logger
}

var _ repository.MailSender = (*GmailSender)(nil)

// NewGmailSender creates a Gmail sender. Callers pass option.WithTokenSource
// in production and option.WithEndpoint/WithHTTPClient in tests.
func NewGmailSender(ctx context.Context, logger logger.Logger, opts ...option.ClientOption) (*GmailSender, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &GmailSender{
		gmailService: service,
		logger:       logger,
	}, nil
}

// Send delivers msg via users.messages.send.
func (s *GmailSender) Send(ctx context.Context, msg *entity.MailMessage) error {
	raw, err := mailer.BuildMessage(msg, time.Now())
	if err != nil {
		return &entity.DeliveryError{Transport: transportGmail, Permanent: true, Err: err}
	}

	message := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := s.gmailService.Users.Messages.Send("me", message).Context(ctx).Do()
	if err != nil {
		return classifyGmailError(err)
	}

	s.logger.Debug("Mail sent", "transport", transportGmail, "to", msg.To, "messageID", sent.Id)
	return nil
}

// classifyGmailError treats client errors as permanent, except throttling
// and request timeouts.
func classifyGmailError(err error) error {
	var apiErr *googleapi.Error
	permanent := false
	if errors.As(err, &apiErr) {
		permanent = apiErr.Code >= 400 && apiErr.Code < 500 &&
			apiErr.Code != http.StatusTooManyRequests &&
			apiErr.Code != http.StatusRequestTimeout
	}
	return &entity.DeliveryError{Transport: transportGmail, Permanent: permanent, Err: fmt.Errorf("gmail send: %w", err)}
}
