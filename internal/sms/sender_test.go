package sms

import (
	"context"
	"errors"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

type fakeGateway struct {
	mu     sync.Mutex
	code   int
	body   string
	form   url.Values
	apiKey string
}

func (fg *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	if err := r.ParseForm(); err == nil {
		fg.form = r.PostForm
	}
	fg.apiKey = r.Header.Get("apiKey")
	w.WriteHeader(fg.code)
	w.Write([]byte(fg.body))
}

func newTestSender(t *testing.T, fg *fakeGateway) *Sender {
	mux := http.NewServeMux()
	mux.Handle("/version1/messaging", fg)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewSender(Config{
		BaseURL:   srv.URL,
		APIKey:    "at-key",
		Username:  "sandbox",
		StoreName: "Connex Creative",
	})
}

func TestSender_SendPickupNotice(t *testing.T) {
	fg := &fakeGateway{
		code: http.StatusCreated,
		body: `{"SMSMessageData":{"Message":"Sent to 1/1","Recipients":[{"statusCode":101,"number":"+254712345678","status":"Success","cost":"KES 0.8000","messageId":"ATXid_1"}]}}`,
	}
	s := newTestSender(t, fg)

	err := s.SendPickupNotice(context.Background(), "0712345678", 42, "Tote bag, Mug")
	require.NoError(t, err)

	fg.mu.Lock()
	defer fg.mu.Unlock()
	assert.Equal(t, "at-key", fg.apiKey)
	assert.Equal(t, "sandbox", fg.form.Get("username"))
	assert.Equal(t, "+254712345678", fg.form.Get("to"))
	assert.Equal(t, "Hello! Your order #42 (Tote bag, Mug) is ready for pickup at Connex Creative. Thank you!", fg.form.Get("message"))
	assert.Empty(t, fg.form.Get("from"))
}

func TestSender_SendPickupNotice_Errors(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		code     int
		body     string
		wantErr  error
		wantCode string
	}{
		{
			name:    "invalid_phone",
			phone:   "12",
			code:    http.StatusCreated,
			wantErr: models.ErrInvalidPhone,
		},
		{
			name:    "bad_api_key",
			phone:   "0712345678",
			code:    http.StatusUnauthorized,
			body:    "The supplied authentication is invalid",
			wantErr: models.ErrProviderAuth,
		},
		{
			name:    "server_error",
			phone:   "0712345678",
			code:    http.StatusInternalServerError,
			wantErr: models.ErrProviderRejected,
		},
		{
			name:     "recipient_rejected",
			phone:    "0712345678",
			code:     http.StatusCreated,
			body:     `{"SMSMessageData":{"Message":"Sent to 0/1","Recipients":[{"statusCode":403,"number":"+254712345678","status":"InvalidPhoneNumber"}]}}`,
			wantErr:  models.ErrProviderRejected,
			wantCode: "403",
		},
		{
			name:    "no_recipients",
			phone:   "0712345678",
			code:    http.StatusCreated,
			body:    `{"SMSMessageData":{"Message":"InvalidSenderId","Recipients":[]}}`,
			wantErr: models.ErrProviderRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSender(t, &fakeGateway{code: tt.code, body: tt.body})

			err := s.SendPickupNotice(context.Background(), tt.phone, 1, "Mug")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			if tt.wantCode != "" {
				var pe *models.ProviderError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, tt.wantCode, pe.Code)
			}
		})
	}
}

func TestSender_RateLimitHonoursContext(t *testing.T) {
	s := NewSender(Config{BaseURL: "http://127.0.0.1:1", RatePerSecond: 0.001, Burst: 1})
	// consume the only token
	require.True(t, s.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, "+254712345678", "hi")
	assert.Error(t, err)
}
