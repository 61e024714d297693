package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"tradeindex/internal/model"
	"tradeindex/internal/store"
)

const dateLayout = "2006-01-02"

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type recordKey struct {
	date      string
	flow      model.Flow
	commodity string
	industry  string
	country   string
	unit1     string
	unit2     string
}

// merge sums records that share a key so that a batch upserts each row once.
func merge(records []model.TradeRecord) []model.TradeRecord {
	index := make(map[recordKey]int, len(records))
	out := make([]model.TradeRecord, 0, len(records))
	for _, r := range records {
		key := recordKey{
			date:      r.Date.UTC().Format(dateLayout),
			flow:      r.Flow,
			commodity: r.CommodityCode,
			industry:  r.IndustryCode,
			country:   r.Country,
			unit1:     r.Unit1,
			unit2:     r.Unit2,
		}
		if i, ok := index[key]; ok {
			out[i].Value += r.Value
			out[i].Qty1 += r.Qty1
			out[i].Qty2 += r.Qty2
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

func (s *Store) UpsertRecords(ctx context.Context, batch store.Batch, records []model.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}
	if batch.ID == "" {
		return fmt.Errorf("sqlite: batch id is required")
	}
	if batch.LoadedAt.IsZero() {
		batch.LoadedAt = time.Now().UTC()
	}
	merged := merge(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO load_batches (id, feed, source, row_count, loaded_at)
		VALUES (?, ?, ?, ?, ?)
	`, batch.ID, string(batch.Feed), batch.Source, len(merged), batch.LoadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trade_records (
			feed, date, flow, commodity_code, industry_code, country, unit_1, unit_2,
			description, value, qty_1, qty_2, batch_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed, date, flow, commodity_code, industry_code, country, unit_1, unit_2)
		DO UPDATE SET
			description = excluded.description,
			value = excluded.value,
			qty_1 = excluded.qty_1,
			qty_2 = excluded.qty_2,
			batch_id = excluded.batch_id
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range merged {
		_, err = stmt.ExecContext(
			ctx,
			string(batch.Feed),
			r.Date.UTC().Format(dateLayout),
			string(r.Flow),
			r.CommodityCode,
			r.IndustryCode,
			r.Country,
			r.Unit1,
			r.Unit2,
			r.Description,
			r.Value,
			r.Qty1,
			r.Qty2,
			batch.ID,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *Store) ListRecords(ctx context.Context, feed model.Feed) ([]model.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, flow, commodity_code, industry_code, country, description,
			value, qty_1, unit_1, qty_2, unit_2
		FROM trade_records
		WHERE feed = ?
		ORDER BY date, flow, commodity_code, industry_code, country, unit_1, unit_2
	`, string(feed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.TradeRecord, 0)
	for rows.Next() {
		var (
			r    model.TradeRecord
			date string
			flow string
		)
		if err := rows.Scan(&date, &flow, &r.CommodityCode, &r.IndustryCode, &r.Country, &r.Description,
			&r.Value, &r.Qty1, &r.Unit1, &r.Qty2, &r.Unit2); err != nil {
			return nil, err
		}
		r.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad date %q: %w", date, err)
		}
		r.Flow = model.Flow(flow)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListBatches(ctx context.Context, feed model.Feed) ([]store.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, feed, source, row_count, loaded_at
		FROM load_batches
		WHERE feed = ?
		ORDER BY loaded_at, id
	`, string(feed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.Batch, 0)
	for rows.Next() {
		var (
			b        store.Batch
			feedName string
			loadedAt string
		)
		if err := rows.Scan(&b.ID, &feedName, &b.Source, &b.Rows, &loadedAt); err != nil {
			return nil, err
		}
		b.Feed = model.Feed(feedName)
		b.LoadedAt, err = time.Parse(time.RFC3339, loadedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: bad loaded_at %q: %w", loadedAt, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) migrate() error {
	statements := []string{
		`PRAGMA foreign_keys = ON;`,
		`CREATE TABLE IF NOT EXISTS load_batches (
			id TEXT PRIMARY KEY,
			feed TEXT NOT NULL,
			source TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			loaded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trade_records (
			feed TEXT NOT NULL,
			date TEXT NOT NULL,
			flow TEXT NOT NULL,
			commodity_code TEXT NOT NULL,
			industry_code TEXT NOT NULL,
			country TEXT NOT NULL,
			unit_1 TEXT NOT NULL,
			unit_2 TEXT NOT NULL,
			description TEXT NOT NULL,
			value REAL NOT NULL,
			qty_1 REAL NOT NULL,
			qty_2 REAL NOT NULL,
			batch_id TEXT NOT NULL REFERENCES load_batches(id),
			PRIMARY KEY (feed, date, flow, commodity_code, industry_code, country, unit_1, unit_2)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trade_records_batch ON trade_records(batch_id);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}

var _ store.Store = (*Store)(nil)
