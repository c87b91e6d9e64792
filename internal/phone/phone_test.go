package phone

import (
	"github.com/rookgm/connexmart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		number  string
		want    string
		wantErr error
	}{
		{name: "leading_zero", number: "0712345678", want: "254712345678"},
		{name: "bare_local", number: "712345678", want: "254712345678"},
		{name: "country_prefix", number: "254712345678", want: "254712345678"},
		{name: "plus_country_prefix", number: "+254712345678", want: "254712345678"},
		{name: "spaces_and_dashes", number: "0712 345-678", want: "254712345678"},
		{name: "empty", number: "", wantErr: models.ErrInvalidPhone},
		{name: "letters", number: "07123abc78", wantErr: models.ErrInvalidPhone},
		{name: "too_short", number: "07123", wantErr: models.ErrInvalidPhone},
		{name: "too_long_local", number: "07123456789", wantErr: models.ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.number)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestE164(t *testing.T) {
	for _, number := range []string{"0712345678", "712345678", "254712345678", "+254712345678"} {
		got, err := E164(number)
		require.NoError(t, err)
		assert.Equal(t, "+254712345678", got, number)
	}

	_, err := E164("12")
	assert.ErrorIs(t, err, models.ErrInvalidPhone)
}
