package sources

import (
	"context"

	"tradeindex/internal/model"
)

// Source supplies the trade records of one feed.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]model.TradeRecord, error)
}

// StaticSource serves a fixed, in-memory table.
type StaticSource struct {
	SourceName string
	Rows       []model.TradeRecord
}

func (s *StaticSource) Name() string {
	return s.SourceName
}

func (s *StaticSource) Records(ctx context.Context) ([]model.TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]model.TradeRecord, len(s.Rows))
	copy(out, s.Rows)
	return out, nil
}
