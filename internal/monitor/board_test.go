// internal/monitor/board_test.go
package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv-streak-monitor/internal/types"
)

func TestBoardInitialSnapshot(t *testing.T) {
	b := NewBoard("Backfilling...")

	snap := b.Snapshot()
	assert.Equal(t, "Backfilling...", snap.Status)
	assert.NotNil(t, snap.Kings, "kings сериализуется как [], а не null")
	assert.Empty(t, snap.Kings)
}

func TestBoardSnapshotReflectsLiveState(t *testing.T) {
	b := NewBoard("Backfilling...")

	cfg := types.AnalysisConfig{Symbol: "R_100", MinCycle: 60, MaxCycle: 300, MaxStrength: 100}
	b.Publish([]types.King{{TF: "C60_00", Color: types.ColorGreen, Level: 2, Strength: 90}}, cfg)

	// Цена и статус меняются после публикации — снапшот отдает свежие
	b.SetStatus("Active")
	b.SetPrice(777.7)

	snap := b.Snapshot()
	assert.Equal(t, "Active", snap.Status)
	assert.Equal(t, 777.7, snap.Price)
	require.Len(t, snap.Kings, 1)
	assert.Equal(t, cfg, snap.Config)
	assert.NotEmpty(t, snap.LastUpdate)
}

func TestBoardPublishNilKings(t *testing.T) {
	b := NewBoard("Active")
	b.Publish(nil, types.AnalysisConfig{})

	assert.NotNil(t, b.Snapshot().Kings)
}
