package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetLink(t *testing.T) {
	cases := map[string]struct {
		base, token, want string
	}{
		"plain base":      {"https://app.test/reset", "tok123", "https://app.test/reset?token=tok123"},
		"base with query": {"https://app.test/reset?lang=es", "tok123", "https://app.test/reset?lang=es&token=tok123"},
		"token escaped":   {"https://app.test/reset", "a+b/c", "https://app.test/reset?token=a%2Bb%2Fc"},
		"empty base":      {"", "tok123", ""},
		"blank base":      {"   ", "tok123", ""},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, resetLink(tc.base, tc.token), name)
	}
}

func TestSMTPNotifier_ResetEventRequiresToken(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.test", ResetURL: "https://app.test/reset"})

	// Un evento de reset sin token es un bug del productor: jamás mandar
	// un mail con link vacío.
	err := n.Publish(context.Background(), Event{
		Type:  TypePasswordResetRequested,
		Email: "user@example.com",
	})
	require.Error(t, err)
}

func TestSMTPNotifier_IgnoresEventsWithoutRecipient(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "smtp.test"})
	// Eventos sin plantilla de mail se descartan sin tocar la red.
	for _, typ := range []Type{TypeMFAEnabled, TypeMFADisabled, TypeTokenReplayDetected, TypeAccountLocked} {
		assert.NoError(t, n.Publish(context.Background(), Event{Type: typ}), string(typ))
	}
}
