package repository

import (
	"context"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/repository/postgres"
)

const insertQuoteQuery = `
						INSERT INTO quotes (name, email, phone, product_interest, quantity, details)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING id, created_at
`

// QuoteRepository implements QuoteRepository interface
type QuoteRepository struct {
	db *postgres.DB
}

// NewQuoteRepository creates new quote repository instance
func NewQuoteRepository(db *postgres.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// AddQuote inserts quote request
func (qr *QuoteRepository) AddQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	err := qr.db.QueryRow(ctx, insertQuoteQuery,
		quote.Name, quote.Email, quote.Phone, quote.ProductInterest, quote.Quantity, quote.Details,
	).Scan(&quote.ID, &quote.CreatedAt)
	if err != nil {
		return nil, err
	}

	return quote, nil
}
