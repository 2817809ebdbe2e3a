package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Unavailable is the literal placed in a rendering when the provider
// published an entry for a currency without the corresponding rate field.
const Unavailable = "unavailable"

// RateValue is either a published decimal rate or "unavailable".
type RateValue struct {
	Amount decimal.Decimal
	Known  bool
}

func KnownRate(amount decimal.Decimal) RateValue {
	return RateValue{Amount: amount, Known: true}
}

func UnknownRate() RateValue {
	return RateValue{}
}

func (v RateValue) String() string {
	if !v.Known {
		return Unavailable
	}
	return v.Amount.String()
}

func (v RateValue) MarshalJSON() ([]byte, error) {
	if !v.Known {
		return json.Marshal(Unavailable)
	}
	return json.Marshal(v.Amount)
}

func (v *RateValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s == Unavailable {
		*v = RateValue{}
		return nil
	}
	var amount decimal.Decimal
	if err := json.Unmarshal(data, &amount); err != nil {
		return err
	}
	*v = RateValue{Amount: amount, Known: true}
	return nil
}

type CurrencyRate struct {
	Sale     RateValue `json:"sale"`
	Purchase RateValue `json:"purchase"`
}

// DailyRate holds the rates parsed from one day's provider response,
// keyed by currency code. Date is the response's own date field, which
// may differ from the requested one if the provider reinterprets the query.
type DailyRate struct {
	Date  string                  `json:"date"`
	Rates map[string]CurrencyRate `json:"rates"`
}

// DayResult is one element of a fetch batch: either a parsed day or the
// error marker that replaced it. Exactly one of the two is set.
type DayResult struct {
	Rate *DailyRate
	Err  string
}

func (r DayResult) Failed() bool {
	return r.Rate == nil
}

// ExchangeQuery is a validated exchange command. Day counts above the
// provider ceiling are clamped at fetch time, not here.
type ExchangeQuery struct {
	Days       int
	Currencies []string
}

// AuditRecord is one exchange-command invocation. Write-once, append-only.
type AuditRecord struct {
	Timestamp time.Time
	Actor     string
	Text      string
}
