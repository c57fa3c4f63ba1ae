package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"audit-service/internal/domain"

	log "github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

type postgresEventStore struct {
	db *sql.DB
}

// NewPostgresEventStore returns an EventStore backed by the
// product_events table.
func NewPostgresEventStore(db *sql.DB) *postgresEventStore {
	return &postgresEventStore{db: db}
}

func (s *postgresEventStore) Put(ctx context.Context, record *domain.AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	detail, err := json.Marshal(record.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal record detail: %w", err)
	}

	// Unconditional upsert: a redelivered duplicate lands on a fresh
	// sort key and creates a second record; only an identical
	// millisecond collision within one partition overwrites.
	query := `
		INSERT INTO product_events (
			partition_key, sort_key,
			created_at, expire_at,
			email, event_id, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (partition_key, sort_key) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			expire_at = EXCLUDED.expire_at,
			email = EXCLUDED.email,
			event_id = EXCLUDED.event_id,
			detail = EXCLUDED.detail
	`

	_, err = s.db.ExecContext(ctx, query,
		record.PartitionKey,
		record.SortKey,
		record.CreatedAt,
		record.ExpireAt,
		record.Email,
		record.EventID,
		detail,
	)

	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"partition_key": record.PartitionKey,
			"sort_key":      record.SortKey,
		}).Error("Failed to put audit record")
		return fmt.Errorf("failed to put audit record: %w", err)
	}
	return nil
}

func (s *postgresEventStore) QueryPage(ctx context.Context, query PageQuery) (*PageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conditions := []string{"partition_key = $1"}
	args := []interface{}{query.PartitionKey}

	if query.From != "" && query.To != "" {
		conditions = append(conditions, fmt.Sprintf("sort_key >= $%d", len(args)+1))
		args = append(args, query.From)
		conditions = append(conditions, fmt.Sprintf("sort_key <= $%d", len(args)+1))
		args = append(args, query.To)
	}
	if query.StartAfter != "" {
		conditions = append(conditions, fmt.Sprintf("sort_key > $%d", len(args)+1))
		args = append(args, query.StartAfter)
	}

	// One row past the limit tells us whether a continuation cursor is
	// needed; this stays a single underlying fetch.
	args = append(args, query.Limit+1)
	stmt := fmt.Sprintf(`
		SELECT partition_key, sort_key, created_at, expire_at, email, event_id, detail
		FROM product_events
		WHERE %s
		ORDER BY sort_key ASC
		LIMIT $%d
	`, strings.Join(conditions, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.WithError(err).WithField("partition_key", query.PartitionKey).Error("Failed to query audit records")
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit records: %w", err)
	}

	result := &PageResult{Records: records}
	if len(records) > query.Limit {
		result.Records = records[:query.Limit]
		result.EvaluatedAt = result.Records[len(result.Records)-1].SortKey
	}
	return result, nil
}

func scanRecord(rows *sql.Rows) (domain.AuditRecord, error) {
	var record domain.AuditRecord
	var email sql.NullString
	var detail []byte

	if err := rows.Scan(
		&record.PartitionKey,
		&record.SortKey,
		&record.CreatedAt,
		&record.ExpireAt,
		&email,
		&record.EventID,
		&detail,
	); err != nil {
		return domain.AuditRecord{}, fmt.Errorf("failed to scan audit record: %w", err)
	}
	if email.Valid {
		record.Email = email.String
	}

	decoded, err := domain.DecodeDetail(partitionFamily(record.PartitionKey), detail)
	if err != nil {
		return domain.AuditRecord{}, err
	}
	record.Detail = decoded
	return record, nil
}

// partitionFamily resolves the detail variant for a stored row. Every
// row this service writes carries a "#product_<TYPE>" key; anything
// else is deliberately decoded as lifecycle, the wider shape.
func partitionFamily(partitionKey string) domain.EventFamily {
	eventType, err := domain.ParseEventType(strings.TrimPrefix(partitionKey, "#product_"))
	if err != nil {
		return domain.FamilyLifecycle
	}
	return eventType.Family()
}

// RunReaper deletes expired records on the given interval until ctx is
// cancelled. Expiry is passive: reads between sweeps may still see
// records past their expire_at.
func (s *postgresEventStore) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.reap(ctx); err != nil {
				log.WithError(err).Error("Failed to reap expired audit records")
			}
		}
	}
}

func (s *postgresEventStore) reap(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM product_events WHERE expire_at <= EXTRACT(EPOCH FROM NOW())::BIGINT`)
	if err != nil {
		return fmt.Errorf("failed to delete expired records: %w", err)
	}
	if reaped, err := result.RowsAffected(); err == nil && reaped > 0 {
		log.WithField("count", reaped).Debug("Reaped expired audit records")
	}
	return nil
}
