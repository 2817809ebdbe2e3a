package domain

import (
	"context"
	"time"
)

// Connection is one live peer as the registry sees it.
type Connection interface {
	SendText(text string) error
	Close() error
	RemoteAddr() string
}

// PeerRegistry tracks active connections. A connection is a member exactly
// while its receive loop is running.
type PeerRegistry interface {
	Register(conn Connection) string
	Unregister(conn Connection)
	Broadcast(text string)
	Count() int
}

// RateProvider fetches rates for the query's day window. The returned
// slice always has one entry per (clamped) day, most recent first; a day
// that failed carries its error marker instead of a rate.
type RateProvider interface {
	Fetch(ctx context.Context, query ExchangeQuery) []DayResult
}

// RateCache stores parsed days keyed by formatted date.
type RateCache interface {
	GetDay(ctx context.Context, date string) (*DailyRate, bool, error)
	SetDay(ctx context.Context, date string, rate *DailyRate, ttl time.Duration) error
}

// AuditSink records exchange-command invocations.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord) error
}
