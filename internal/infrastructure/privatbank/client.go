package privatbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

const (
	DefaultBaseURL = "https://api.privatbank.ua/p24api/exchange_rates"

	dateLayout = "02.01.2006"

	// maxDays is the fetch-time ceiling; the parser deliberately lets
	// larger counts through.
	maxDays = 10

	// A past day's rates never change; the current day's still move.
	pastDayTTL    = 24 * time.Hour
	currentDayTTL = 10 * time.Minute
)

// Client fetches one provider response per calendar day, all days of a
// query concurrently. One day's failure never aborts its siblings.
type Client struct {
	baseURL string
	http    *http.Client
	cache   domain.RateCache // optional
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, cache domain.RateCache,
	m *metrics.Metrics, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Fetch issues one GET per day offset from today backwards and joins the
// results in offset order regardless of completion order.
func (c *Client) Fetch(ctx context.Context, query domain.ExchangeQuery) []domain.DayResult {
	days := query.Days
	if days > maxDays {
		days = maxDays
	}
	if days <= 0 {
		return nil
	}

	requested := make(map[string]struct{}, len(query.Currencies))
	for _, code := range query.Currencies {
		requested[code] = struct{}{}
	}

	today := c.now()
	results := make([]domain.DayResult, days)

	var wg sync.WaitGroup
	for offset := 0; offset < days; offset++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			date := today.AddDate(0, 0, -offset).Format(dateLayout)
			results[offset] = c.fetchDay(ctx, date, requested)
		}(offset)
	}
	wg.Wait()

	return results
}

func (c *Client) fetchDay(ctx context.Context, date string, requested map[string]struct{}) domain.DayResult {
	if cached, ok := c.lookupCache(ctx, date); ok {
		return domain.DayResult{Rate: filterRates(cached, requested)}
	}

	reqURL := c.baseURL + "?json&date=" + date

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.failure(date, err.Error())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failure(date, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.failure(date, fmt.Sprintf("Error status: %d for %s", resp.StatusCode, reqURL))
	}

	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return c.failure(date, err.Error())
	}

	full := parseRates(&payload, date)
	c.storeCache(ctx, date, full)

	return domain.DayResult{Rate: filterRates(full, requested)}
}

func (c *Client) failure(date, marker string) domain.DayResult {
	c.metrics.FetchErrorsTotal.Inc()
	c.log.Warn("Day fetch failed", "date", date, "error", marker)
	return domain.DayResult{Err: marker}
}

func (c *Client) lookupCache(ctx context.Context, date string) (*domain.DailyRate, bool) {
	if c.cache == nil {
		return nil, false
	}
	rate, ok, err := c.cache.GetDay(ctx, date)
	if err != nil {
		c.log.Warn("Rate cache lookup failed", "date", date, "error", err)
		return nil, false
	}
	return rate, ok
}

func (c *Client) storeCache(ctx context.Context, date string, rate *domain.DailyRate) {
	if c.cache == nil {
		return
	}
	ttl := pastDayTTL
	if date == c.now().Format(dateLayout) {
		ttl = currentDayTTL
	}
	if err := c.cache.SetDay(ctx, date, rate, ttl); err != nil {
		c.log.Warn("Rate cache store failed", "date", date, "error", err)
	}
}

type ratesResponse struct {
	Date         string      `json:"date"`
	ExchangeRate []rateEntry `json:"exchangeRate"`
}

type rateEntry struct {
	Currency       string           `json:"currency"`
	SaleRate       *decimal.Decimal `json:"saleRate"`
	SaleRateNB     *decimal.Decimal `json:"saleRateNB"`
	PurchaseRate   *decimal.Decimal `json:"purchaseRate"`
	PurchaseRateNB *decimal.Decimal `json:"purchaseRateNB"`
}

// parseRates keeps every entry of the response; the per-request currency
// filter happens afterwards so a cached day can serve any query.
func parseRates(payload *ratesResponse, requestedDate string) *domain.DailyRate {
	date := payload.Date
	if date == "" {
		date = requestedDate
	}

	rates := make(map[string]domain.CurrencyRate, len(payload.ExchangeRate))
	for _, entry := range payload.ExchangeRate {
		if entry.Currency == "" {
			continue
		}
		rates[entry.Currency] = domain.CurrencyRate{
			Sale:     preferCommercial(entry.SaleRate, entry.SaleRateNB),
			Purchase: preferCommercial(entry.PurchaseRate, entry.PurchaseRateNB),
		}
	}

	return &domain.DailyRate{Date: date, Rates: rates}
}

// preferCommercial picks the institution's own rate over the central-bank
// reference one.
func preferCommercial(rate, reference *decimal.Decimal) domain.RateValue {
	if rate != nil {
		return domain.KnownRate(*rate)
	}
	if reference != nil {
		return domain.KnownRate(*reference)
	}
	return domain.UnknownRate()
}

func filterRates(full *domain.DailyRate, requested map[string]struct{}) *domain.DailyRate {
	rates := make(map[string]domain.CurrencyRate, len(requested))
	for code, rate := range full.Rates {
		if _, ok := requested[code]; ok {
			rates[code] = rate
		}
	}
	return &domain.DailyRate{Date: full.Date, Rates: rates}
}
