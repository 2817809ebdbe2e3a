package privatbank

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

var testNow = time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)

func newTestClient(baseURL string, cache domain.RateCache) *Client {
	c := NewClient(baseURL, 5*time.Second, cache, metrics.New(prometheus.NewRegistry()), logger.Nop())
	c.now = func() time.Time { return testNow }
	return c
}

func query(days int, currencies ...string) domain.ExchangeQuery {
	return domain.ExchangeQuery{Days: days, Currencies: currencies}
}

func ratesBody(date string, currencies ...string) string {
	entries := make([]string, 0, len(currencies))
	for i, code := range currencies {
		entries = append(entries, fmt.Sprintf(
			`{"currency":%q,"saleRate":%d.5,"purchaseRate":%d.25,"saleRateNB":%d.1,"purchaseRateNB":%d.1}`,
			code, 40+i, 39+i, 40+i, 39+i))
	}
	return fmt.Sprintf(`{"date":%q,"exchangeRate":[%s]}`, date, strings.Join(entries, ","))
}

func TestFetch_TwoDaysInOffsetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		fmt.Fprint(w, ratesBody(date, "EUR", "USD", "PLN", "UAH"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(2, "PLN", "EUR", "USD"))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	wantDates := []string{"03.08.2026", "02.08.2026"}
	for i, want := range wantDates {
		if results[i].Failed() {
			t.Fatalf("day %d failed: %s", i, results[i].Err)
		}
		if results[i].Rate.Date != want {
			t.Fatalf("day %d: expected date %s, got %s", i, want, results[i].Rate.Date)
		}
		if len(results[i].Rate.Rates) != 3 {
			t.Fatalf("day %d: expected exactly EUR, USD, PLN, got %v", i, results[i].Rate.Rates)
		}
		for _, code := range []string{"EUR", "USD", "PLN"} {
			if _, ok := results[i].Rate.Rates[code]; !ok {
				t.Fatalf("day %d: missing %s", i, code)
			}
		}
	}
}

func TestFetch_ClampsDayCount(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, ratesBody(r.URL.Query().Get("date"), "EUR", "USD"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(25, "EUR", "USD"))

	if len(results) != 10 {
		t.Fatalf("expected day count clamped to 10, got %d results", len(results))
	}
	if got := requests.Load(); got != 10 {
		t.Fatalf("expected 10 requests, got %d", got)
	}
}

func TestFetch_ZeroDaysYieldsEmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a zero-day query")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	if results := c.Fetch(context.Background(), query(0, "EUR", "USD")); len(results) != 0 {
		t.Fatalf("expected empty batch, got %d results", len(results))
	}
}

func TestFetch_UpstreamStatusErrorDoesNotFailBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "02.08.2026" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, ratesBody(r.URL.Query().Get("date"), "EUR", "USD"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(2, "EUR", "USD"))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Failed() {
		t.Fatalf("today's fetch should succeed: %s", results[0].Err)
	}
	if !results[1].Failed() {
		t.Fatal("yesterday's fetch should carry an error marker")
	}
	if !strings.Contains(results[1].Err, "503") {
		t.Fatalf("marker must embed the status code: %q", results[1].Err)
	}
	if !strings.Contains(results[1].Err, "date=02.08.2026") {
		t.Fatalf("marker must embed the requested URL: %q", results[1].Err)
	}
}

func TestFetch_TransportErrorDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse all connections

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(2, "EUR", "USD"))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, res := range results {
		if !res.Failed() || res.Err == "" {
			t.Fatalf("day %d: expected an error marker, got %+v", i, res)
		}
	}
}

func TestFetch_EmptyExchangeRateArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"date":%q,"exchangeRate":[]}`, r.URL.Query().Get("date"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(1, "EUR", "USD"))

	if len(results) != 1 || results[0].Failed() {
		t.Fatalf("expected one parsed day, got %+v", results)
	}
	if len(results[0].Rate.Rates) != 0 {
		t.Fatalf("expected zero entries, got %v", results[0].Rate.Rates)
	}
}

func TestFetch_MissingExchangeRateField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"date":%q}`, r.URL.Query().Get("date"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(1, "EUR", "USD"))

	if len(results) != 1 || results[0].Failed() {
		t.Fatalf("expected one parsed day, got %+v", results)
	}
	if len(results[0].Rate.Rates) != 0 {
		t.Fatalf("expected an empty rate map, got %v", results[0].Rate.Rates)
	}
}

func TestFetch_ReferenceRateFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"date":%q,"exchangeRate":[
			{"currency":"EUR","saleRateNB":40.1,"purchaseRateNB":39.1},
			{"currency":"USD"}
		]}`, r.URL.Query().Get("date"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(1, "EUR", "USD"))

	if len(results) != 1 || results[0].Failed() {
		t.Fatalf("expected one parsed day, got %+v", results)
	}
	eur := results[0].Rate.Rates["EUR"]
	if !eur.Sale.Known || eur.Sale.String() != "40.1" {
		t.Fatalf("expected the reference sale rate, got %s", eur.Sale)
	}
	usd := results[0].Rate.Rates["USD"]
	if usd.Sale.Known || usd.Sale.String() != "unavailable" {
		t.Fatalf("expected unavailable sale rate, got %s", usd.Sale)
	}
	if usd.Purchase.Known {
		t.Fatalf("expected unavailable purchase rate, got %s", usd.Purchase)
	}
}

func TestFetch_ResponseDateWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Provider reinterprets the requested day.
		fmt.Fprint(w, ratesBody("01.01.2020", "EUR", "USD"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, nil)
	results := c.Fetch(context.Background(), query(1, "EUR", "USD"))

	if results[0].Rate.Date != "01.01.2020" {
		t.Fatalf("record must be keyed by the response's own date, got %s", results[0].Rate.Date)
	}
}

type memoryCache struct {
	days map[string]*domain.DailyRate
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{days: make(map[string]*domain.DailyRate)}
}

func (m *memoryCache) GetDay(_ context.Context, date string) (*domain.DailyRate, bool, error) {
	rate, ok := m.days[date]
	return rate, ok, nil
}

func (m *memoryCache) SetDay(_ context.Context, date string, rate *domain.DailyRate, _ time.Duration) error {
	m.days[date] = rate
	m.sets++
	return nil
}

func TestFetch_CacheHitSkipsRequest(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, ratesBody(r.URL.Query().Get("date"), "EUR", "USD"))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	cache.days["03.08.2026"] = &domain.DailyRate{
		Date: "03.08.2026",
		Rates: map[string]domain.CurrencyRate{
			"EUR": {Sale: domain.KnownRate(decimal.NewFromInt(40)), Purchase: domain.KnownRate(decimal.NewFromInt(39))},
			"USD": {Sale: domain.KnownRate(decimal.NewFromInt(41)), Purchase: domain.KnownRate(decimal.NewFromInt(40))},
			"PLN": {Sale: domain.KnownRate(decimal.NewFromInt(10)), Purchase: domain.KnownRate(decimal.NewFromInt(9))},
		},
	}

	c := newTestClient(srv.URL, cache)
	results := c.Fetch(context.Background(), query(1, "EUR", "USD"))

	if got := requests.Load(); got != 0 {
		t.Fatalf("cache hit must skip the request, got %d requests", got)
	}
	if len(results[0].Rate.Rates) != 2 {
		t.Fatalf("cached day must still be filtered to the requested set, got %v", results[0].Rate.Rates)
	}
}

func TestFetch_StoresFullDayInCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ratesBody(r.URL.Query().Get("date"), "EUR", "USD", "PLN"))
	}))
	defer srv.Close()

	cache := newMemoryCache()
	c := newTestClient(srv.URL, cache)
	c.Fetch(context.Background(), query(1, "EUR", "USD"))

	if cache.sets != 1 {
		t.Fatalf("expected one cache store, got %d", cache.sets)
	}
	stored := cache.days["03.08.2026"]
	if stored == nil || len(stored.Rates) != 3 {
		t.Fatalf("cache must keep the unfiltered day, got %+v", stored)
	}
}
