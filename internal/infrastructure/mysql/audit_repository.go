package mysql

import (
	"context"
	"database/sql"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
)

// AuditRepository persists exchange-command invocations when a DSN is
// configured instead of the file sink.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Record(ctx context.Context, rec domain.AuditRecord) error {
	query := `
        INSERT INTO audit_records (recorded_at, actor, command)
        VALUES (?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query, rec.Timestamp, rec.Actor, rec.Text)
	return err
}

func (r *AuditRepository) RecentRecords(ctx context.Context, limit int) ([]*domain.AuditRecord, error) {
	query := `
        SELECT recorded_at, actor, command
        FROM audit_records
        ORDER BY recorded_at DESC
        LIMIT ?
    `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Actor, &rec.Text); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}
