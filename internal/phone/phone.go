// Package phone normalizes Kenyan subscriber numbers.
package phone

import (
	"github.com/rookgm/connexmart/internal/models"
	"strings"
)

// CountryCode is the calling code prepended to local numbers
const CountryCode = "254"

// subscriber number length without trunk prefix and country code
const subscriberLen = 9

// Normalize returns number in canonical form 254XXXXXXXXX.
// 0XXXXXXXXX, XXXXXXXXX, 254XXXXXXXXX and +254XXXXXXXXX are accepted,
// spaces and dashes are ignored.
func Normalize(number string) (string, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '(', ')':
			return -1
		}
		return r
	}, number)
	clean = strings.TrimPrefix(clean, "+")

	for _, r := range clean {
		if r < '0' || r > '9' {
			return "", models.ErrInvalidPhone
		}
	}

	switch {
	case strings.HasPrefix(clean, CountryCode) && len(clean) == len(CountryCode)+subscriberLen:
	case strings.HasPrefix(clean, "0") && len(clean) == subscriberLen+1:
		clean = CountryCode + clean[1:]
	case len(clean) == subscriberLen:
		clean = CountryCode + clean
	default:
		return "", models.ErrInvalidPhone
	}

	return clean, nil
}

// E164 returns number in +254XXXXXXXXX form
func E164(number string) (string, error) {
	n, err := Normalize(number)
	if err != nil {
		return "", err
	}
	return "+" + n, nil
}
