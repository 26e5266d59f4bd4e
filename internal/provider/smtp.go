package provider

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/postmangpx/postmangpx/internal/domain"
)

// SMTPProvider hands messages to an SMTP relay using the channel's
// connection parameters.
type SMTPProvider struct {
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPProvider() *SMTPProvider {
	return &SMTPProvider{sendMail: smtp.SendMail}
}

func (p *SMTPProvider) Send(ctx context.Context, channel domain.Channel, message domain.Message) (*SendResponse, error) {
	if p == nil || p.sendMail == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(channel.Host) == "" || channel.Port == 0 {
		return nil, &ProviderError{
			Message:   "channel is missing smtp host or port",
			Transient: false,
		}
	}

	from := strings.TrimSpace(channel.From)
	if from == "" {
		from = channel.Username
	}
	if from == "" {
		return nil, &ProviderError{
			Message:   "channel has no sender address",
			Transient: false,
		}
	}

	recipients := []string{message.To}
	recipients = append(recipients, splitAddressList(message.CC)...)
	recipients = append(recipients, splitAddressList(message.BCC)...)

	body, contentType := buildBody(message)

	headers := []string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", message.To),
	}
	if cc := splitAddressList(message.CC); len(cc) > 0 {
		headers = append(headers, fmt.Sprintf("Cc: %s", strings.Join(cc, ", ")))
	}
	headers = append(headers,
		fmt.Sprintf("Subject: %s", message.Subject),
		"MIME-Version: 1.0",
		fmt.Sprintf("Content-Type: %s", contentType),
	)

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	var auth smtp.Auth
	if channel.Username != "" && channel.Password != "" {
		auth = smtp.PlainAuth("", channel.Username, channel.Password, channel.Host)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", channel.Host, channel.Port)
	if err := p.sendMail(addr, auth, from, recipients, []byte(raw)); err != nil {
		return nil, classifySMTPError(err)
	}

	return &SendResponse{
		StatusCode: 250,
		Body:       "250 2.0.0 OK",
	}, nil
}

// classifySMTPError maps SMTP reply codes: 4xx is a temporary failure, 5xx a
// permanent one. Connection-level errors are left to net.Error handling.
func classifySMTPError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return &ProviderError{
			StatusCode: protoErr.Code,
			Message:    protoErr.Msg,
			Transient:  protoErr.Code >= 400 && protoErr.Code < 500,
			Cause:      err,
		}
	}

	return &ProviderError{
		Message:   "smtp hand-off failed",
		Transient: true,
		Cause:     err,
	}
}

func splitAddressList(v *string) []string {
	if v == nil {
		return nil
	}

	parts := strings.Split(*v, ",")
	addresses := make([]string, 0, len(parts))
	for _, part := range parts {
		if addr := strings.TrimSpace(part); addr != "" {
			addresses = append(addresses, addr)
		}
	}
	return addresses
}

func buildBody(message domain.Message) (body string, contentType string) {
	html := ""
	if message.HTMLContent != nil {
		html = *message.HTMLContent
	}
	text := ""
	if message.TextContent != nil {
		text = *message.TextContent
	}

	if html != "" && text != "" {
		boundary := multipartBoundary()
		var sb strings.Builder
		sb.WriteString("This is a multipart message in MIME format.\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		sb.WriteString("\r\n")
		sb.WriteString(text)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		sb.WriteString("\r\n")
		sb.WriteString(html)
		sb.WriteString("\r\n")
		fmt.Fprintf(&sb, "--%s--", boundary)
		return sb.String(), fmt.Sprintf("multipart/alternative; boundary=%s", boundary)
	}

	if html != "" {
		return html, "text/html; charset=UTF-8"
	}

	return text, "text/plain; charset=UTF-8"
}

func multipartBoundary() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "pmx-boundary-fallback"
	}
	return "pmx-boundary-" + hex.EncodeToString(b[:])
}
