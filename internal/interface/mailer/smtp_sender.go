package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"jetlag-mailcast/internal/domain/entity"
	"jetlag-mailcast/internal/domain/repository"
	"jetlag-mailcast/pkg/logger"
)

const transportSMTP = "smtp"

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers mail through an SMTP relay using an app password
type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	sendMail sendMailFunc
	logger   logger.Logger
}

var _ repository.MailSender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTP sender authenticating with PLAIN auth.
func NewSMTPSender(host string, port int, username, password string, logger logger.Logger) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr:     host + ":" + strconv.Itoa(port),
		auth:     auth,
		sendMail: smtp.SendMail,
		logger:   logger,
	}
}

// Send delivers msg. net/smtp has no context support, so a cancelled ctx
// abandons the wait but not the underlying connection.
func (s *SMTPSender) Send(ctx context.Context, msg *entity.MailMessage) error {
	raw, err := BuildMessage(msg, time.Now())
	if err != nil {
		return &entity.DeliveryError{Transport: transportSMTP, Permanent: true, Err: err}
	}
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return &entity.DeliveryError{Transport: transportSMTP, Permanent: true, Err: err}
	}
	to, err := Recipient(msg)
	if err != nil {
		return &entity.DeliveryError{Transport: transportSMTP, Permanent: true, Err: err}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.sendMail(s.addr, s.auth, from.Address, []string{to}, raw)
	}()

	select {
	case <-ctx.Done():
		return &entity.DeliveryError{Transport: transportSMTP, Err: fmt.Errorf("smtp send: %w", ctx.Err())}
	case err := <-errCh:
		if err != nil {
			return classifySMTPError(err)
		}
	}

	s.logger.Debug("Mail sent", "transport", transportSMTP, "to", to, "subject", msg.Subject)
	return nil
}

// classifySMTPError treats 5xx replies as permanent; everything else,
// including network failures, is worth retrying.
func classifySMTPError(err error) error {
	var tpErr *textproto.Error
	permanent := errors.As(err, &tpErr) && tpErr.Code >= 500 && tpErr.Code < 600
	return &entity.DeliveryError{Transport: transportSMTP, Permanent: permanent, Err: err}
}
