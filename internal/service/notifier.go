package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier delivers an SOS message to a single phone number. The queue
// consumer fans an alert out by calling Notify once per contact.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// TwilioNotifier sends SMS through the Twilio Messages API using basic auth.
type TwilioNotifier struct {
	AccountSID string
	AuthToken  string
	From       string
	HTTP       *http.Client
	BaseURL    string // overridable for tests
}

func NewTwilioNotifier(accountSID, authToken, from string) *TwilioNotifier {
	return &TwilioNotifier{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
		BaseURL:    "https://api.twilio.com",
	}
}

// Notify posts one SMS. Twilio answers 201 on acceptance; anything else is
// reported as an error with the status code.
func (t *TwilioNotifier) Notify(ctx context.Context, phone, message string) error {
	form := url.Values{}
	form.Set("To", phone)
	form.Set("From", t.From)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.BaseURL, t.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// NoopNotifier is used when Twilio credentials are not configured. Alerts
// still move through the queue and are marked notified, only the SMS leg is
// skipped.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string, string) error { return nil }
