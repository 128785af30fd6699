package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// MailTransport hands a built message to a mail server. *mail.Client
// satisfies it.
type MailTransport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mail delivers notifications to a single mailbox, sent from and to the
// same address.
type Mail struct {
	transport MailTransport
	address   string
}

// NewMail creates a Mail channel.
func NewMail(transport MailTransport, address string) *Mail {
	return &Mail{transport: transport, address: address}
}

// Name returns "mail".
func (m *Mail) Name() string { return "mail" }

// Send builds one message with text as its body and hands it to the
// transport.
func (m *Mail) Send(ctx context.Context, text string) error {
	msg, err := m.build(text)
	if err != nil {
		return err
	}
	if err := m.transport.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

func (m *Mail) build(text string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.address); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(m.address); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", m.address, err)
	}
	msg.Subject(subjectFor(text))
	msg.SetBodyString(mail.TypeTextPlain, text)
	return msg, nil
}

// subjectFor derives a subject from the status and cell lines of a
// composed notification, falling back to a generic subject. Lines from Details on are user text
// and are not read.
func subjectFor(text string) string {
	var status, cell string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Details: ") {
			break
		}
		switch {
		case status == "" && strings.HasPrefix(line, "Execution Status: "):
			status = strings.TrimPrefix(line, "Execution Status: ")
		case cell == "" && strings.HasPrefix(line, "Cell id: "):
			cell = strings.TrimPrefix(line, "Cell id: ")
		}
	}
	if status == "" {
		return "Notebook notification"
	}
	if cell == "" {
		return "Notebook cell " + status
	}
	return fmt.Sprintf("Notebook cell %s: %s", status, cell)
}
