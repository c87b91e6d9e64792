package service

//go:generate mockgen -source=quote.go -destination=mocks/mock_quote.go -package=mocks

import (
	"context"
	"fmt"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/metrics"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/phone"
	"go.uber.org/zap"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	maxQuoteName    = 200
	maxQuoteDetails = 4000
)

// QuoteRepository is interface for storing quote requests
type QuoteRepository interface {
	// AddQuote inserts quote request
	AddQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error)
}

// QuoteService accepts quote requests from visitors
type QuoteService struct {
	repo QuoteRepository
}

// NewQuoteService creates new QuoteService instance
func NewQuoteService(repo QuoteRepository) *QuoteService {
	return &QuoteService{repo: repo}
}

// SubmitQuote validates and stores quote request.
// Customer must leave an email or a phone number to be contacted.
func (qs *QuoteService) SubmitQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	quote.Name = strings.TrimSpace(quote.Name)
	quote.Email = strings.TrimSpace(quote.Email)
	quote.Phone = strings.TrimSpace(quote.Phone)
	quote.ProductInterest = strings.TrimSpace(quote.ProductInterest)
	quote.Details = strings.TrimSpace(quote.Details)

	switch {
	case quote.Name == "":
		return nil, fmt.Errorf("%w: name required", models.ErrInvalidQuote)
	case utf8.RuneCountInString(quote.Name) > maxQuoteName:
		return nil, fmt.Errorf("%w: name is too long", models.ErrInvalidQuote)
	case quote.Email == "" && quote.Phone == "":
		return nil, fmt.Errorf("%w: email or phone required", models.ErrInvalidQuote)
	case quote.Quantity < 0:
		return nil, fmt.Errorf("%w: quantity must not be negative", models.ErrInvalidQuote)
	case utf8.RuneCountInString(quote.Details) > maxQuoteDetails:
		return nil, fmt.Errorf("%w: details are too long", models.ErrInvalidQuote)
	}

	if quote.Email != "" {
		addr, err := mail.ParseAddress(quote.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid email", models.ErrInvalidQuote)
		}
		quote.Email = addr.Address
	}
	if quote.Phone != "" {
		msisdn, err := phone.Normalize(quote.Phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrInvalidQuote, err)
		}
		quote.Phone = msisdn
	}

	created, err := qs.repo.AddQuote(ctx, quote)
	if err != nil {
		logger.Log.Error("store quote request", zap.Error(err))
		return nil, err
	}

	metrics.QuotesSubmitted.Inc()
	logger.Log.Info("quote request stored",
		zap.Uint64("quote_id", created.ID),
		zap.String("product_interest", created.ProductInterest),
		zap.Int("quantity", created.Quantity))

	return created, nil
}
