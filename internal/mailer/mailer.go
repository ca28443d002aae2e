package mailer

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailLookup resolves a user's e-mail address.
type EmailLookup interface {
	GetEmailByID(ctx context.Context, userID string) (string, error)
}

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Notifier e-mails owners when their listing is created.
type Notifier struct {
	sender Sender
	from   string
	users  EmailLookup
	logger *logger.Logger
}

func NewSMTPNotifier(host string, port int, email, password string, users EmailLookup, log *logger.Logger) *Notifier {
	return NewNotifier(gomail.NewDialer(host, port, email, password), email, users, log)
}

func NewNotifier(sender Sender, from string, users EmailLookup, log *logger.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		from:   from,
		users:  users,
		logger: log.Named("Mailer"),
	}
}

func (n *Notifier) NotifyListingCreated(ctx context.Context, listing *domain.Listing) error {
	to, err := n.users.GetEmailByID(ctx, listing.UserID)
	if err != nil {
		return fmt.Errorf("Notifier.NotifyListingCreated: lookup owner: %w", err)
	}
	if to == "" {
		n.logger.Debug("Owner has no e-mail, skipping notification", zap.String("user_id", listing.UserID))
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "New Listing Created")
	m.SetBody("text/plain", fmt.Sprintf("Your listing '%s' has been created successfully.", listingLabel(listing)))

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("Notifier.NotifyListingCreated: send: %w", err)
	}
	n.logger.Info("Listing created e-mail sent", zap.String("listing_id", listing.ID), zap.String("user_id", listing.UserID))
	return nil
}

func listingLabel(l *domain.Listing) string {
	if l.Title != nil && *l.Title != "" {
		return *l.Title
	}
	if r := []rune(l.Description); len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return l.Description
}
