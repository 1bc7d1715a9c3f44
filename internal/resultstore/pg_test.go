package resultstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/boardheat/internal/contracts"
)

func TestPgStore_UpsertIdempotent(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
	require.NoError(t, err)
	defer pool.Close()

	s := NewPgStore(pool)
	date := time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC) // 운영 데이터와 겹치지 않는 날짜
	rows := []contracts.BoardHeatDaily{
		{BoardID: 900001, BoardName: "test-a", BoardType: contracts.BoardTypeConcept, Date: date, SnapDate: date,
			MemberCount: 3, B1: 1.52, HeatRaw: 1.52, HeatPct: 1, Metric: contracts.MetricB1, K: 1},
	}

	require.NoError(t, s.UpsertBoardHeat(ctx, date, rows))
	require.NoError(t, s.UpsertBoardHeat(ctx, date, rows))

	got, err := s.BoardHeatByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 1.52, got[0].B1, 1e-9)

	require.NoError(t, s.UpsertBoardHeat(ctx, date, nil))
}
