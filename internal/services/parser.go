package services

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
)

const DefaultDays = 1

const invalidDaysMessage = "Invalid days count! It must be numeric value between 1 and 10"

// baseCurrencies are always part of a query, requested or not.
var baseCurrencies = [...]string{"EUR", "USD"}

var apiCurrencies = map[string]struct{}{
	"AUD": {}, "AZN": {}, "BYN": {}, "CAD": {}, "CHF": {},
	"CNY": {}, "CZK": {}, "DKK": {}, "EUR": {}, "GBP": {},
	"GEL": {}, "HUF": {}, "ILS": {}, "JPY": {}, "KZT": {},
	"MDL": {}, "NOK": {}, "PLN": {}, "SEK": {}, "SGD": {},
	"TMT": {}, "TRY": {}, "UAH": {}, "USD": {}, "UZS": {},
	"XAU": {},
}

// BaseCurrencies returns the pair included in every query.
func BaseCurrencies() []string {
	return append([]string(nil), baseCurrencies[:]...)
}

// AllowedCurrencies returns the allow-list in sorted order.
func AllowedCurrencies() []string {
	codes := make([]string, 0, len(apiCurrencies))
	for code := range apiCurrencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func invalidCurrencyMessage() string {
	return "Invalid currency! Use one of available currencies:\n" +
		strings.Join(AllowedCurrencies(), ", ")
}

// ParseCommand validates the token list of an exchange command. tokens[0]
// is the command name, tokens[1] an optional day count, tokens[2] an
// optional comma-separated currency list. Requested codes are unioned with
// the base pair. A day count of zero is accepted and yields an empty batch.
func ParseCommand(tokens []string) (domain.ExchangeQuery, error) {
	query := domain.ExchangeQuery{Days: DefaultDays}

	if len(tokens) > 1 {
		days, ok := parseDays(tokens[1])
		if !ok {
			return domain.ExchangeQuery{}, errors.New(invalidDaysMessage)
		}
		query.Days = days
	}

	var requested []string
	if len(tokens) > 2 {
		for _, code := range strings.Split(strings.ToUpper(tokens[2]), ",") {
			if _, ok := apiCurrencies[code]; !ok {
				return domain.ExchangeQuery{}, errors.New(invalidCurrencyMessage())
			}
			requested = append(requested, code)
		}
	}
	query.Currencies = withBase(requested)

	return query, nil
}

// parseDays accepts only non-negative integer literals.
func parseDays(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	days, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return days, true
}

func withBase(requested []string) []string {
	seen := make(map[string]struct{}, len(requested)+len(baseCurrencies))
	union := make([]string, 0, len(requested)+len(baseCurrencies))
	for _, code := range requested {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		union = append(union, code)
	}
	for _, code := range baseCurrencies {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		union = append(union, code)
	}
	return union
}
