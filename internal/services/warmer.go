package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

// RateWarmer periodically fetches the current day for the base pair so the
// common exchange invocation answers from cache. The fetch path itself
// populates the cache; the warmer only has to trigger it after the cached
// entry expires.
type RateWarmer struct {
	cron  *cron.Cron
	rates domain.RateProvider
	log   logger.Logger
}

func NewRateWarmer(rates domain.RateProvider, log logger.Logger) *RateWarmer {
	return &RateWarmer{
		cron:  cron.New(cron.WithSeconds()),
		rates: rates,
		log:   log,
	}
}

func (w *RateWarmer) Start(ctx context.Context, interval time.Duration) error {
	w.log.Info("Starting rate warmer", "interval", interval)

	_, err := w.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		w.warm(ctx)
	})
	if err != nil {
		return err
	}

	// Prime the cache before the first tick.
	go w.warm(ctx)

	w.cron.Start()
	return nil
}

func (w *RateWarmer) Stop() {
	w.log.Info("Stopping rate warmer")
	w.cron.Stop()
}

func (w *RateWarmer) warm(ctx context.Context) {
	query := domain.ExchangeQuery{Days: 1, Currencies: BaseCurrencies()}
	for _, res := range w.rates.Fetch(ctx, query) {
		if res.Failed() {
			w.log.Warn("Rate warm failed", "error", res.Err)
		}
	}
}
