package contact

import (
	"context"
	"strings"

	"staybook/internal/app/commands"
	"staybook/internal/app/policies"
	"staybook/internal/domain/shared/faults"
)

const sendContactKey = "contact.send"

var ErrOwnerUnset = faults.Validation("contact: owner address is not configured")

type SendContactCommand struct {
	Name    string `validate:"required,max=200"`
	Email   string `validate:"required,email"`
	Message string `validate:"required,max=5000"`
}

func (c SendContactCommand) Key() string { return sendContactKey }

type SendContactResult struct {
	Delivered bool `json:"delivered"`
}

// SendContactHandler mails the owner right away; the caller learns about a failed send.
type SendContactHandler struct {
	Notifier   policies.Notifier
	OwnerEmail string
}

func (h *SendContactHandler) Handle(ctx context.Context, cmd SendContactCommand) (*SendContactResult, error) {
	if h.OwnerEmail == "" {
		return nil, ErrOwnerUnset
	}
	email := strings.TrimSpace(cmd.Email)
	err := h.Notifier.Send(ctx, policies.Notification{
		Template: policies.TemplateContact,
		To:       h.OwnerEmail,
		ReplyTo:  email,
		Data: policies.ContactMail{
			Name:    strings.TrimSpace(cmd.Name),
			Email:   email,
			Message: strings.TrimSpace(cmd.Message),
		},
	})
	if err != nil {
		return nil, faults.Upstream("contact: send failed", err)
	}
	return &SendContactResult{Delivered: true}, nil
}

var _ commands.Handler[SendContactCommand, *SendContactResult] = (*SendContactHandler)(nil)
