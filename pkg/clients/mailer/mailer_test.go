package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/mamadbah2/hospital-reports/internal/config"
	"github.com/mamadbah2/hospital-reports/internal/domain/models"
)

func sampleMessage() models.MailMessage {
	return models.MailMessage{
		To:      []string{"a@example.org", "b@example.org"},
		Subject: "Scheduled Report: Weekly",
		Text:    "summary",
		HTML:    "<p>summary</p>",
		Attachments: []models.Attachment{
			{Data: []byte("%PDF-1.3"), Filename: "Weekly.pdf"},
		},
	}
}

type stubDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *stubDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPClientSend(t *testing.T) {
	d := &stubDialer{}
	c := NewSMTPClient(config.MailConfig{From: "reports@example.org"}, nil)
	c.dialer = d

	require.NoError(t, c.Send(context.Background(), sampleMessage()))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"reports@example.org"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Scheduled Report: Weekly"}, m.GetHeader("Subject"))
}

func TestSMTPClientErrors(t *testing.T) {
	d := &stubDialer{err: errors.New("535 auth failed")}
	c := NewSMTPClient(config.MailConfig{}, nil)
	c.dialer = d

	err := c.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")

	msg := sampleMessage()
	msg.To = nil
	assert.ErrorIs(t, c.Send(context.Background(), msg), ErrNoRecipients)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Send(ctx, sampleMessage()), context.Canceled)
}

func TestRelayClientSend(t *testing.T) {
	var got models.MailMessage
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewRelayClient(config.MailConfig{RelayURL: srv.URL, RelayToken: "tok"}, nil)
	require.NoError(t, c.Send(context.Background(), sampleMessage()))

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, sampleMessage(), got)
}

func TestRelayClientFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "rejected", status: http.StatusOK, body: `{"success":false,"error":"mailbox full"}`, wantErr: "mailbox full"},
		{name: "server error", status: http.StatusBadGateway, body: `{"success":false,"error":"upstream down"}`, wantErr: "code=502, message=upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewRelayClient(config.MailConfig{RelayURL: srv.URL}, nil)
			err := c.Send(context.Background(), sampleMessage())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewSelectsDriver(t *testing.T) {
	g, err := New(config.MailConfig{Driver: config.MailDriverSMTP}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPClient{}, g)

	g, err = New(config.MailConfig{Driver: config.MailDriverHTTP, RelayURL: "http://relay"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RelayClient{}, g)

	_, err = New(config.MailConfig{Driver: "fax"}, nil)
	assert.Error(t, err)
}
