package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type MockSender struct {
	Sent []*gomail.Message
	Err  error
}

func (s *MockSender) DialAndSend(m ...*gomail.Message) error {
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, m...)
	return nil
}

func TestNotifier_NotifyListingCreated(t *testing.T) {
	users := memory.NewUserRepository()
	users.Put("u1", "owner@example.com")
	sender := &MockSender{}
	n := NewNotifier(sender, "noreply@example.com", users, logger.NewNop())

	title := "Road bike"
	err := n.NotifyListingCreated(context.Background(), &domain.Listing{ID: "l1", UserID: "u1", Title: &title})
	require.NoError(t, err)
	require.Len(t, sender.Sent, 1)

	m := sender.Sent[0]
	assert.Equal(t, []string{"owner@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"noreply@example.com"}, m.GetHeader("From"))
	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, strings.Contains(buf.String(), "Road bike"))
}

func TestNotifier_Errors(t *testing.T) {
	users := memory.NewUserRepository()
	users.Put("u1", "owner@example.com")

	n := NewNotifier(&MockSender{}, "noreply@example.com", users, logger.NewNop())
	err := n.NotifyListingCreated(context.Background(), &domain.Listing{UserID: "unknown"})
	assert.ErrorIs(t, err, memory.ErrUserNotFound)

	n = NewNotifier(&MockSender{Err: errors.New("smtp down")}, "noreply@example.com", users, logger.NewNop())
	err = n.NotifyListingCreated(context.Background(), &domain.Listing{UserID: "u1", Description: "d"})
	assert.Error(t, err)
}

func TestListingLabel(t *testing.T) {
	long := strings.Repeat("x", 80)
	assert.Equal(t, strings.Repeat("x", 60)+"...", listingLabel(&domain.Listing{Description: long}))
	assert.Equal(t, "short", listingLabel(&domain.Listing{Description: "short"}))
}
