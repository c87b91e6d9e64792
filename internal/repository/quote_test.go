package repository

import (
	"context"
	"errors"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"regexp"
	"testing"
	"time"
)

func TestQuoteRepository_AddQuote(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	createdAt := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quotes")).
		WithArgs("Wanjiru", "wanjiru@example.com", "254712345678", "Branded mugs", 200, "Logo on both sides").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uint64(5), createdAt))

	repo := NewQuoteRepository(postgres.NewWithConn(mock))
	quote, err := repo.AddQuote(context.Background(), &models.Quote{
		Name:            "Wanjiru",
		Email:           "wanjiru@example.com",
		Phone:           "254712345678",
		ProductInterest: "Branded mugs",
		Quantity:        200,
		Details:         "Logo on both sides",
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), quote.ID)
	assert.Equal(t, createdAt, quote.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteRepository_AddQuote_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quotes")).
		WillReturnError(errors.New("check constraint quotes_contact"))

	repo := NewQuoteRepository(postgres.NewWithConn(mock))
	quote, err := repo.AddQuote(context.Background(), &models.Quote{Name: "Wanjiru"})
	assert.Error(t, err)
	assert.Nil(t, quote)
}
