package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"gopkg.in/gomail.v2"
)

// Sender is satisfied by *gomail.Dialer.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailDispatcher e-mails notifications to the resolved recipients.
type MailDispatcher struct {
	sender Sender
	users  db.UserCollection
	from   string
}

// NewMailDispatcher creates a dispatcher resolving recipients through users.
func NewMailDispatcher(sender Sender, users db.UserCollection, from string) *MailDispatcher {
	return &MailDispatcher{sender: sender, users: users, from: from}
}

// NewSMTPSender creates a gomail dialer for the SMTP relay.
func NewSMTPSender(host string, port int, user, password string) *gomail.Dialer {
	return gomail.NewDialer(host, port, user, password)
}

func (d *MailDispatcher) recipients(ctx context.Context, n Notification) ([]string, error) {
	if n.ToManagers || n.UserID == nil {
		managers, err := d.users.FindUsersByRole(ctx, n.TenantID, models.RoleManager, models.RoleAdmin)
		if err != nil {
			return nil, fmt.Errorf("find managers: %w", err)
		}
		emails := make([]string, 0, len(managers))
		for _, m := range managers {
			if m.Email != "" {
				emails = append(emails, m.Email)
			}
		}
		return emails, nil
	}
	user, err := d.users.FindUserByID(ctx, n.UserID.Hex())
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", n.UserID.Hex(), err)
	}
	if user.TenantID != n.TenantID || user.Email == "" {
		return nil, nil
	}
	return []string{user.Email}, nil
}

func subject(t Type) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return "[Fleet] " + strings.Join(words, " ")
}

func (d *MailDispatcher) Dispatch(ctx context.Context, n Notification) error {
	to, err := d.recipients(ctx, n)
	if err != nil {
		return err
	}
	if len(to) == 0 {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", d.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject(n.Type))
	msg.SetBody("text/plain", n.Message)
	if err := d.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
