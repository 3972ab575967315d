package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestNotify(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("sends known kind", func(t *testing.T) {
		d := &fakeDialer{}
		n := NewEmailServiceWithDialer(d, "billing@example.com", "GymDesk")

		res := n.Notify(context.Background(), "owner@example.com", KindTrialEnding, map[string]interface{}{
			"name": "Asha", "date": date, "days_left": 7,
		})

		assert.True(t, res.Success)
		assert.Len(t, d.sent, 1)
		assert.Equal(t, []string{"Your trial ends in 7 day(s)"}, d.sent[0].GetHeader("Subject"))
	})

	t.Run("delivery failure is reported not raised", func(t *testing.T) {
		d := &fakeDialer{err: errors.New("smtp down")}
		n := NewEmailServiceWithDialer(d, "billing@example.com", "GymDesk")

		res := n.Notify(context.Background(), "owner@example.com", KindPaymentFailed, nil)

		assert.False(t, res.Success)
		assert.Equal(t, "smtp down", res.Error)
	})

	t.Run("unknown kind", func(t *testing.T) {
		d := &fakeDialer{}
		n := NewEmailServiceWithDialer(d, "billing@example.com", "GymDesk")

		res := n.Notify(context.Background(), "owner@example.com", NotificationKind("nope"), nil)

		assert.False(t, res.Success)
		assert.Empty(t, d.sent)
	})

	t.Run("missing recipient", func(t *testing.T) {
		n := NewEmailServiceWithDialer(&fakeDialer{}, "billing@example.com", "GymDesk")
		res := n.Notify(context.Background(), "", KindTrialEnded, nil)
		assert.False(t, res.Success)
	})
}
