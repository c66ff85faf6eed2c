package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"jetlag-mailcast/internal/domain/entity"
)

// ErrInvalidAddress is returned when a sender or recipient cannot be parsed.
var ErrInvalidAddress = errors.New("invalid mail address")

// BuildMessage renders msg as an RFC 5322 plain-text message with CRLF line endings.
func BuildMessage(msg *entity.MailMessage, date time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(msg.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q: %v", ErrInvalidAddress, msg.From, err)
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("%w: to %q: %v", ErrInvalidAddress, msg.To, err)
	}

	var buf bytes.Buffer
	writeHeader(&buf, "From", from.String())
	writeHeader(&buf, "To", to.String())
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", `text/plain; charset="UTF-8"`)
	writeHeader(&buf, "Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\r\n")
	}
	return buf.Bytes(), nil
}

// Recipient returns the bare address of the message recipient.
func Recipient(msg *entity.MailMessage) (string, error) {
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return "", fmt.Errorf("%w: to %q: %v", ErrInvalidAddress, msg.To, err)
	}
	return to.Address, nil
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}
