package notify

import (
	"context"

	"hushpay/internal/alerts"
	"hushpay/internal/i18n"
	"hushpay/internal/identity"
	"hushpay/internal/provider"
)

// Directory looks up an identity's preferences.
type Directory interface {
	Get(ctx context.Context, phone string) (identity.Identity, error)
}

// Messenger renders background notifications in the owner's language.
type Messenger struct {
	out     provider.Notifier
	people  Directory
	channel provider.Channel
}

func NewMessenger(out provider.Notifier, people Directory, channel provider.Channel) *Messenger {
	if channel == "" {
		channel = provider.ChannelSMS
	}
	return &Messenger{out: out, people: people, channel: channel}
}

// Language returns the owner's language, or the default when unknown.
func (m *Messenger) Language(ctx context.Context, phone string) string {
	if m.people == nil {
		return i18n.Default
	}
	id, err := m.people.Get(ctx, phone)
	if err != nil || id.Language == "" {
		return i18n.Default
	}
	return id.Language
}

// Send renders key in the recipient's language and delivers it.
func (m *Messenger) Send(ctx context.Context, phone string, key i18n.Key, args ...string) error {
	return m.out.Notify(ctx, phone, m.channel, i18n.T(m.Language(ctx, phone), key, args...))
}

// PriceAlertHit implements alerts.Notifier.
func (m *Messenger) PriceAlertHit(ctx context.Context, hit alerts.Hit) error {
	return m.Send(ctx, hit.Alert.Identity, i18n.PriceAlertHit,
		"token", hit.Alert.Token,
		"current", hit.Current.StringFixed(2),
		"condition", string(hit.Alert.Condition),
		"price", hit.Alert.TargetPrice.String(),
	)
}

var _ alerts.Notifier = (*Messenger)(nil)
