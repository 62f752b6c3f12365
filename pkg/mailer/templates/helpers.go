package templates

import (
	"time"

	"github.com/bunny/boardhole/config"
)

// Option pattern
type Option func(*EmailData)

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) {
		utc := time.Now().Add(dur).UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

func newBase(cfg *config.Config, name, username, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:     name,
		Username: username,
		Email:    email,
		AppName:  cfg.AppName,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// NewSignupVerificationData builds payload for the signup verification mail.
// The verify link embeds the token so the recipient can complete signup.
func NewSignupVerificationData(cfg *config.Config, name, username, email, token string, opts ...Option) map[string]any {
	d := newBase(cfg, name, username, email, opts...)
	d.Token = token
	d.VerifyURL = cfg.VerifyEmailURL + "?token=" + token
	return ToMap(d)
}

// NewEmailChangeVerificationData builds payload for the email-change
// verification mail sent to the prospective address.
func NewEmailChangeVerificationData(cfg *config.Config, name, username, newEmail, token string, opts ...Option) map[string]any {
	d := newBase(cfg, name, username, newEmail, opts...)
	d.Token = token
	d.NewEmail = newEmail
	d.VerifyURL = cfg.ChangeEmailURL + "?token=" + token
	return ToMap(d)
}

// NewWelcomeData builds payload for the welcome mail.
func NewWelcomeData(cfg *config.Config, name, username, email string, opts ...Option) map[string]any {
	d := newBase(cfg, name, username, email, opts...)
	return ToMap(d)
}

// NewEmailChangedData builds payload for the change-confirmation mail sent to
// the new address after the switch completes.
func NewEmailChangedData(cfg *config.Config, name, username, newEmail string, opts ...Option) map[string]any {
	d := newBase(cfg, name, username, newEmail, opts...)
	d.NewEmail = newEmail
	return ToMap(d)
}
