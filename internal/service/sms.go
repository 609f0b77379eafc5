package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nursera-booking-server/config"

	"github.com/sirupsen/logrus"
)

// SMSSender is the out-of-band delivery collaborator for OTP codes.
// The state machine treats it as fire-and-forget: a failed send is logged
// and never rolls back the transition that triggered it.
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// TwilioSMSSender posts messages through Twilio's REST API
type TwilioSMSSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewTwilioSMSSender(cfg config.SMSConfig, log *logrus.Logger) *TwilioSMSSender {
	return &TwilioSMSSender{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		from:       cfg.TwilioFromNumber,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *TwilioSMSSender) Send(ctx context.Context, phoneNumber, message string) error {
	if s.accountSID == "" || s.authToken == "" {
		return errors.New("twilio credentials missing")
	}
	if phoneNumber == "" {
		return errors.New("phone number required")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("message body required")
	}

	payload := url.Values{}
	payload.Set("To", phoneNumber)
	payload.Set("From", s.from)
	payload.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var twilioErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &twilioErr) == nil && twilioErr.Message != "" {
			return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, twilioErr.Message)
		}
		return fmt.Errorf("twilio returned %d", resp.StatusCode)
	}

	s.log.Infof("SMS sent to %s", phoneNumber)
	return nil
}
