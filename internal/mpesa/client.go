package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/rookgm/connexmart/internal/models"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	providerName = "mpesa"

	tokenPath = "oauth/v1/generate"
	stkPath   = "mpesa/stkpush/v1/processrequest"

	transactionType = "CustomerPayBillOnline"
	// ResponseCodeAccepted is ResponseCode of accepted STK push
	ResponseCodeAccepted = "0"
	// TimestampLayout is provider timestamp format YYYYMMDDHHMMSS
	TimestampLayout = "20060102150405"

	defaultTimeout = 10 * time.Second
	// token is refreshed this long before provider expiry
	tokenExpiryMargin = time.Minute
	// limit of provider error body kept in errors
	maxErrorBody = 4 << 10
)

// TokenCache keeps provider access token between requests
type TokenCache interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	// Delete drops token rejected by provider
	Delete(ctx context.Context) error
}

// Config contains provider credentials and endpoints
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

// Client is payment gateway client
type Client struct {
	client *http.Client
	cfg    Config
	cache  TokenCache
	now    func() time.Time
}

// NewClient creates new Client instance, cache may be nil
func NewClient(cfg Config, cache TokenCache) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client: &http.Client{
			Timeout: timeout,
		},
		cfg:   cfg,
		cache: cache,
		now:   time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func newError(op string, kind error, statusCode int, err error) *models.ProviderError {
	return &models.ProviderError{
		Provider:   providerName,
		Op:         op,
		StatusCode: statusCode,
		Kind:       kind,
		Err:        err,
	}
}

// fillFromBody adds provider error code and message to pe when body carries them
func fillFromBody(pe *models.ProviderError, body []byte) {
	errResp := errorResponse{}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorCode != "" {
		pe.Code = errResp.ErrorCode
		pe.Message = errResp.ErrorMessage
		return
	}
	pe.Message = string(body)
}

// GetAccessToken returns bearer token for provider API.
// GET /oauth/v1/generate?grant_type=client_credentials
// 200 — токен выдан;
// 400, 401 — неверные ключи приложения.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	token, _, err := c.accessToken(ctx)
	return token, err
}

// accessToken also reports whether token was taken from cache
func (c *Client) accessToken(ctx context.Context) (string, bool, error) {
	if c.cache != nil {
		if token, ok, err := c.cache.Get(ctx); err == nil && ok {
			return token, true, nil
		}
	}

	token, err := c.fetchAccessToken(ctx)
	return token, false, err
}

// fetchAccessToken requests new token and caches it
func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	const op = "access token"

	u, err := url.JoinPath(c.cfg.BaseURL, tokenPath)
	if err != nil {
		return "", err
	}
	u += "?grant_type=client_credentials"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return "", newError(op, models.ErrProviderTransport, 0, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return "", newError(op, models.ErrProviderTransport, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		pe := newError(op, models.ErrProviderAuth, resp.StatusCode, nil)
		fillFromBody(pe, body)
		return "", pe
	}

	tokenResp := tokenResponse{}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", newError(op, models.ErrProviderAuth, resp.StatusCode, err)
	}
	if tokenResp.AccessToken == "" {
		return "", newError(op, models.ErrProviderAuth, resp.StatusCode, errors.New("empty access token"))
	}

	if c.cache != nil {
		if ttl := tokenTTL(tokenResp.ExpiresIn); ttl > 0 {
			// cache errors are ignored
			_ = c.cache.Set(ctx, tokenResp.AccessToken, ttl)
		}
	}

	return tokenResp.AccessToken, nil
}

func tokenTTL(expiresIn string) time.Duration {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs)*time.Second - tokenExpiryMargin
}

// Password returns base64(shortCode + passkey + timestamp)
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// Timestamp formats t in provider format using UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SubmitPaymentRequest sends STK push request.
// POST /mpesa/stkpush/v1/processrequest
// 200 и ResponseCode "0" — запрос принят, ответ придёт на CallBackURL;
// прочее — запрос отклонён.
func (c *Client) SubmitPaymentRequest(ctx context.Context, token string, stk models.STKPushRequest) (*models.PaymentResponse, error) {
	const op = "stk push"

	stk.Password = Password(stk.BusinessShortCode, c.cfg.Passkey, stk.Timestamp)

	payload, err := json.Marshal(stk)
	if err != nil {
		return nil, err
	}

	u, err := url.JoinPath(c.cfg.BaseURL, stkPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, newError(op, models.ErrProviderTransport, 0, err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, newError(op, models.ErrProviderTransport, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		pe := newError(op, models.ErrProviderAuth, resp.StatusCode, nil)
		fillFromBody(pe, body)
		return nil, pe
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		pe := newError(op, models.ErrProviderRejected, resp.StatusCode, nil)
		fillFromBody(pe, body)
		return nil, pe
	}

	payResp := models.PaymentResponse{}
	if err := json.Unmarshal(body, &payResp); err != nil {
		return nil, newError(op, models.ErrProviderRejected, resp.StatusCode, fmt.Errorf("malformed response: %w", err))
	}

	if payResp.ResponseCode != ResponseCodeAccepted || payResp.CheckoutRequestID == "" {
		pe := newError(op, models.ErrProviderRejected, resp.StatusCode, nil)
		pe.Code = payResp.ResponseCode
		pe.Message = payResp.ResponseDescription
		return nil, pe
	}

	return &payResp, nil
}

// InitiatePayment gets access token and submits payment request for amount.
// Cached token rejected by provider is dropped and request is sent once more
// with a new one.
func (c *Client) InitiatePayment(ctx context.Context, pr models.PaymentRequest) (*models.PaymentResponse, error) {
	token, cached, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	stk := models.STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Timestamp:         Timestamp(c.now()),
		TransactionType:   transactionType,
		Amount:            pr.Amount,
		PartyA:            pr.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       pr.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  pr.Reference,
		TransactionDesc:   pr.Description,
	}

	resp, err := c.SubmitPaymentRequest(ctx, token, stk)
	if !errors.Is(err, models.ErrProviderAuth) || c.cache == nil {
		return resp, err
	}

	// cache errors are ignored, fresh token replaces the entry anyway
	_ = c.cache.Delete(ctx)
	if !cached {
		return nil, err
	}

	token, err = c.fetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.SubmitPaymentRequest(ctx, token, stk)
}
