package services

import (
	"context"
	"strings"
	"time"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
	"github.com/KondratovaLudmila/exchange-chat/internal/infrastructure/metrics"
	"github.com/KondratovaLudmila/exchange-chat/pkg/logger"
)

const commandPrefix = "exchange"

// Dispatcher turns inbound chat frames into reply text. Plain messages
// echo unchanged; exchange commands are audited, parsed, fetched and
// rendered inline.
type Dispatcher struct {
	rates   domain.RateProvider
	audit   domain.AuditSink
	metrics *metrics.Metrics
	log     logger.Logger
}

func NewDispatcher(rates domain.RateProvider, audit domain.AuditSink,
	m *metrics.Metrics, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		rates:   rates,
		audit:   audit,
		metrics: m,
		log:     log,
	}
}

// Dispatch handles one frame from sender and returns the text to broadcast.
// Audit failures are logged and never block the reply; validation and
// per-day fetch failures surface inline in the reply text.
func (d *Dispatcher) Dispatch(ctx context.Context, sender, text string) string {
	if !strings.HasPrefix(text, commandPrefix) {
		return text
	}
	d.metrics.ExchangeCommandsTotal.Inc()

	rec := domain.AuditRecord{Timestamp: time.Now(), Actor: sender, Text: text}
	if err := d.audit.Record(ctx, rec); err != nil {
		d.log.Error("Failed to write audit record", "actor", sender, "error", err)
	}

	reply := text + " result:"
	query, err := ParseCommand(strings.Split(text, " "))
	if err != nil {
		return reply + err.Error()
	}

	results := d.rates.Fetch(ctx, query)
	return reply + RenderResults(results)
}
