package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/phone"
	"golang.org/x/time/rate"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	providerName  = "africastalking"
	messagingPath = "version1/messaging"

	defaultTimeout = 10 * time.Second
	maxBody        = 8 << 10

	pickupTemplate = "Hello! Your order #%d (%s) is ready for pickup at %s. Thank you!"
)

// recipient status codes treated as delivered to provider
const (
	statusProcessed = 100
	statusSent      = 101
	statusQueued    = 102
)

// Config contains SMS provider settings
type Config struct {
	BaseURL   string
	APIKey    string
	Username  string
	SenderID  string
	StoreName string
	Timeout   time.Duration
	// RatePerSecond limits outgoing messages, zero disables limit
	RatePerSecond float64
	Burst         int
}

// Sender sends pickup notifications
type Sender struct {
	client  *http.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewSender creates new Sender instance
func NewSender(cfg Config) *Sender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Sender{
		client: &http.Client{
			Timeout: timeout,
		},
		cfg:     cfg,
		limiter: limiter,
	}
}

type sendResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Status     string `json:"status"`
			Cost       string `json:"cost"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// PickupMessage renders pickup notice text
func (s *Sender) PickupMessage(orderID uint64, itemSummary string) string {
	return fmt.Sprintf(pickupTemplate, orderID, itemSummary, s.cfg.StoreName)
}

// SendPickupNotice sends ready for pickup message to single recipient
func (s *Sender) SendPickupNotice(ctx context.Context, phoneNumber string, orderID uint64, itemSummary string) error {
	to, err := phone.E164(phoneNumber)
	if err != nil {
		return err
	}

	return s.Send(ctx, to, s.PickupMessage(orderID, itemSummary))
}

// Send sends message to one E.164 number.
// POST /version1/messaging
// 201 — сообщение принято, статус получателя в теле ответа;
// 401 — неверный apiKey;
// прочее — ошибка провайдера.
func (s *Sender) Send(ctx context.Context, to, message string) error {
	const op = "send sms"

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("username", s.cfg.Username)
	form.Set("to", to)
	form.Set("message", message)
	if s.cfg.SenderID != "" {
		form.Set("from", s.cfg.SenderID)
	}

	u, err := url.JoinPath(s.cfg.BaseURL, messagingPath)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("apiKey", s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return &models.ProviderError{Provider: providerName, Op: op, Kind: models.ErrProviderTransport, Err: err}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &models.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Kind: models.ErrProviderTransport, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &models.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Kind: models.ErrProviderAuth, Message: string(body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &models.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Kind: models.ErrProviderRejected, Message: string(body)}
	}

	sendResp := sendResponse{}
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return &models.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Kind: models.ErrProviderRejected, Err: err}
	}

	recipients := sendResp.SMSMessageData.Recipients
	if len(recipients) != 1 {
		return &models.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Kind: models.ErrProviderRejected,
			Message: sendResp.SMSMessageData.Message}
	}

	switch recipients[0].StatusCode {
	case statusProcessed, statusSent, statusQueued:
		return nil
	default:
		return &models.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Kind: models.ErrProviderRejected,
			Code: strconv.Itoa(recipients[0].StatusCode), Message: recipients[0].Status}
	}
}
