package mailer

import (
	"context"
	"errors"
	"fmt"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const transportSES = "ses"

// SESClient abstracts the SES client for testing.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers mail through Amazon SES
type SESSender struct {
	client           SESClient
	configurationSet string
	logger           logger.Logger
}

var _ repository.MailSender = (*SESSender)(nil)

// NewSESSender loads the default AWS credential chain for region.
func NewSESSender(ctx context.Context, region, configurationSet string, logger logger.Logger) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := ses.NewFromConfig(cfg, func(o *ses.Options) {
		o.RetryMaxAttempts = 3
	})
	return NewSESSenderWithClient(client, configurationSet, logger), nil
}

// NewSESSenderWithClient wraps an existing SES client.
func NewSESSenderWithClient(client SESClient, configurationSet string, logger logger.Logger) *SESSender {
	return &SESSender{
		client:           client,
		configurationSet: configurationSet,
		logger:           logger,
	}
}

// Send delivers msg as a plain-text SES email.
func (s *SESSender) Send(ctx context.Context, msg *entity.MailMessage) error {
	to, err := Recipient(msg)
	if err != nil {
		return &entity.DeliveryError{Transport: transportSES, Permanent: true, Err: err}
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Source:      aws.String(msg.From),
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return classifySESError(err)
	}

	s.logger.Debug("Mail sent", "transport", transportSES, "to", to, "messageID", aws.ToString(out.MessageId))
	return nil
}

func classifySESError(err error) error {
	var rejected *types.MessageRejected
	var unverified *types.MailFromDomainNotVerifiedException
	var missingSet *types.ConfigurationSetDoesNotExistException
	permanent := errors.As(err, &rejected) || errors.As(err, &unverified) || errors.As(err, &missingSet)
	return &entity.DeliveryError{Transport: transportSES, Permanent: permanent, Err: fmt.Errorf("ses send email: %w", err)}
}
