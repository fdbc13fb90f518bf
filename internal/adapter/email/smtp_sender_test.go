package email

import (
	"context"
	"testing"

	"github.com/Shiyikai2002/student-trading-platform/internal/app/config"
	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSender_IncompleteConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.SMTPConfig
	}{
		{name: "missing host", cfg: config.SMTPConfig{Port: 587, SenderEmail: "noreply@example.com"}},
		{name: "missing port", cfg: config.SMTPConfig{Host: "smtp.example.com", SenderEmail: "noreply@example.com"}},
		{name: "missing sender", cfg: config.SMTPConfig{Host: "smtp.example.com", Port: 587}},
		{name: "all missing", cfg: config.SMTPConfig{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sender, err := NewSMTPSender(tc.cfg, logger.NewNop())
			require.Error(t, err)
			assert.Nil(t, sender)
			assert.Contains(t, err.Error(), "must be configured")
		})
	}
}

func TestNewSMTPSender_Encryption(t *testing.T) {
	base := config.SMTPConfig{Host: "smtp.example.com", Port: 465, SenderEmail: "noreply@example.com"}

	ssl := base
	ssl.Encryption = "SSL"
	sender, err := NewSMTPSender(ssl, logger.NewNop())
	require.NoError(t, err)
	assert.True(t, sender.d.SSL)
	require.NotNil(t, sender.d.TLSConfig)
	assert.Equal(t, "smtp.example.com", sender.d.TLSConfig.ServerName)

	starttls := base
	starttls.Encryption = "tls"
	starttls.ServerName = "mail.example.com"
	sender, err = NewSMTPSender(starttls, logger.NewNop())
	require.NoError(t, err)
	assert.False(t, sender.d.SSL)
	assert.Equal(t, "mail.example.com", sender.d.TLSConfig.ServerName)

	for _, mode := range []string{"none", ""} {
		plain := base
		plain.Encryption = mode
		sender, err = NewSMTPSender(plain, logger.NewNop())
		require.NoError(t, err)
		assert.False(t, sender.d.SSL, "encryption %q on port 465", mode)
		assert.Nil(t, sender.d.TLSConfig)
	}
}

func TestSMTPSender_SendRejectsBadInput(t *testing.T) {
	sender, err := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1, SenderEmail: "noreply@example.com"}, logger.NewNop())
	require.NoError(t, err)

	err = sender.Send(context.Background(), nil, "Sold", "", "body")
	assert.EqualError(t, err, "no recipients provided for email")

	err = sender.Send(context.Background(), []string{"seller@student.gla.ac.uk"}, "Sold", "", "")
	assert.EqualError(t, err, "email body (HTML or Text) must be provided")
}

func TestSMTPSender_SendHonoursCancelledContext(t *testing.T) {
	sender, err := NewSMTPSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1, SenderEmail: "noreply@example.com"}, logger.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = sender.Send(ctx, []string{"seller@student.gla.ac.uk"}, "Sold", "", "body")
	assert.Error(t, err)
}
