// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv-streak-monitor/internal/monitor"
	"deriv-streak-monitor/internal/storage"
	"deriv-streak-monitor/internal/types"
)

// stubConfig - изменяемый источник параметров анализа
type stubConfig struct {
	mu sync.Mutex
	a  types.AnalysisConfig
}

func (s *stubConfig) Analysis() types.AnalysisConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a
}

func (s *stubConfig) set(a types.AnalysisConfig) {
	s.mu.Lock()
	s.a = a
	s.mu.Unlock()
}

// stubMirror записывает опубликованные снапшоты
type stubMirror struct {
	mu    sync.Mutex
	calls int
	last  interface{}
}

func (m *stubMirror) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = value
	return nil
}

// blockingBackfiller имитирует долгую загрузку истории:
// работает до отмены ctx
type blockingBackfiller struct {
	started chan struct{}
}

func (b *blockingBackfiller) Run(ctx context.Context, start, end int64) int {
	close(b.started)
	<-ctx.Done()
	return 0
}

// stubLive фиксирует, запускалась ли live-подписка
type stubLive struct {
	mu      sync.Mutex
	started bool
}

func (l *stubLive) Start() {
	l.mu.Lock()
	l.started = true
	l.mu.Unlock()
}

func (l *stubLive) Stop() {}

func (l *stubLive) wasStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

const testNow = int64(1_000_000_000)

func newTestScheduler(cfg *stubConfig, store *storage.TickStorage, mirror SnapshotMirror) (*Scheduler, *monitor.Board) {
	board := monitor.NewBoard("Active")
	s := New(cfg, store, board, nil, nil, mirror,
		30*time.Second, time.Hour, 48*time.Hour, 5)
	s.now = func() time.Time { return time.Unix(testNow, 0).UTC() }
	return s, board
}

// seedTrend засевает тики с монотонным трендом: каждая свеча зеленая,
// серии гарантированно есть на любом (cycle, offset)
func seedTrend(store *storage.TickStorage) {
	ticks := make([]types.Tick, 0, 240)
	price := 100.0
	for epoch := testNow - 3600; epoch < testNow; epoch += 15 {
		price += 0.1
		ticks = append(ticks, types.NewBatchTick(epoch, price, 0))
	}
	store.InsertBatch(ticks)
}

func TestRunPassEmptyStorePublishesEmptyKings(t *testing.T) {
	cfg := &stubConfig{a: types.AnalysisConfig{
		Symbol: "R_100", MinCycle: 60, MaxCycle: 60, MinStrength: 0, MaxStrength: 100,
	}}
	s, board := newTestScheduler(cfg, storage.NewTickStorage(), nil)

	s.RunPass()

	snap := board.Snapshot()
	assert.NotNil(t, snap.Kings)
	assert.Empty(t, snap.Kings)
	assert.NotEmpty(t, snap.LastUpdate)
	assert.Equal(t, cfg.Analysis(), snap.Config)
}

func TestRunPassFindsKings(t *testing.T) {
	cfg := &stubConfig{a: types.AnalysisConfig{
		Symbol: "R_100", MinCycle: 60, MaxCycle: 62, MinStrength: 0, MaxStrength: 100,
	}}
	store := storage.NewTickStorage()
	seedTrend(store)
	mirror := &stubMirror{}
	s, board := newTestScheduler(cfg, store, mirror)

	s.RunPass()

	snap := board.Snapshot()
	require.NotEmpty(t, snap.Kings, "монотонный тренд должен дать хотя бы одного короля")

	// Отсортировано: длина серии по возрастанию, затем цвет
	isSorted := sort.SliceIsSorted(snap.Kings, func(i, j int) bool {
		if snap.Kings[i].Level != snap.Kings[j].Level {
			return snap.Kings[i].Level < snap.Kings[j].Level
		}
		return snap.Kings[i].Color < snap.Kings[j].Color
	})
	assert.True(t, isSorted)

	// Сила каждого короля в заявленных границах
	for _, k := range snap.Kings {
		assert.GreaterOrEqual(t, k.Strength, 0.0)
		assert.LessOrEqual(t, k.Strength, 100.0)
		assert.Positive(t, k.CurrCount)
	}

	// Зеркало получило снапшот
	assert.Equal(t, 1, mirror.calls)
}

// На пару (цвет, длина) выживает ровно один король за проход
func TestRunPassSingleKingPerKey(t *testing.T) {
	cfg := &stubConfig{a: types.AnalysisConfig{
		Symbol: "R_100", MinCycle: 60, MaxCycle: 90, MinStrength: 0, MaxStrength: 100,
	}}
	store := storage.NewTickStorage()
	seedTrend(store)
	s, board := newTestScheduler(cfg, store, nil)

	s.RunPass()

	seen := make(map[types.StreakKey]bool)
	for _, k := range board.Snapshot().Kings {
		key := types.StreakKey{Color: k.Color, Level: k.Level}
		assert.False(t, seen[key], "дубликат короля для %v", key)
		seen[key] = true
	}
}

// Обновление конфигурации действует со следующего прохода
func TestConfigReadFreshEachPass(t *testing.T) {
	cfg := &stubConfig{a: types.AnalysisConfig{
		Symbol: "R_100", MinCycle: 60, MaxCycle: 61, MinStrength: 0, MaxStrength: 100,
	}}
	store := storage.NewTickStorage()
	seedTrend(store)
	s, board := newTestScheduler(cfg, store, nil)

	s.RunPass()
	require.NotEmpty(t, board.Snapshot().Kings)

	// Невыполнимые границы силы: следующий проход не найдет королей
	cfg.set(types.AnalysisConfig{
		Symbol: "R_100", MinCycle: 60, MaxCycle: 61, MinStrength: 100, MaxStrength: 100,
	})
	s.RunPass()

	snap := board.Snapshot()
	for _, k := range snap.Kings {
		assert.InDelta(t, 100.0, k.Strength, 1e-9)
	}
	assert.Equal(t, int64(60), snap.Config.MinCycle)
	assert.InDelta(t, 100.0, snap.Config.MinStrength, 1e-9)
}

// Stop во время backfill отменяет ctx загрузчика и возвращается быстро,
// не дожидаясь всех чанков; live-фаза после остановки не запускается
func TestStopDuringBackfillReturnsPromptly(t *testing.T) {
	cfg := &stubConfig{a: types.AnalysisConfig{
		Symbol: "R_100", MinCycle: 60, MaxCycle: 60, MinStrength: 0, MaxStrength: 100,
	}}
	backfiller := &blockingBackfiller{started: make(chan struct{})}
	live := &stubLive{}
	board := monitor.NewBoard("Starting...")
	s := New(cfg, storage.NewTickStorage(), board, backfiller, live, nil,
		30*time.Second, time.Hour, 48*time.Hour, 5)

	s.Start()
	<-backfiller.started

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop завис: сигнал остановки не дошел до backfill")
	}

	assert.False(t, live.wasStarted(), "live-подписка не должна запускаться после остановки")
	assert.Equal(t, "Backfilling...", board.Status())
}

func TestSortKingsOrder(t *testing.T) {
	kings := map[types.StreakKey]types.King{
		{Color: types.ColorRed, Level: 2}:   {Color: types.ColorRed, Level: 2},
		{Color: types.ColorGreen, Level: 2}: {Color: types.ColorGreen, Level: 2},
		{Color: types.ColorGreen, Level: 1}: {Color: types.ColorGreen, Level: 1},
	}

	sorted := SortKings(kings)
	require.Len(t, sorted, 3)
	assert.Equal(t, 1, sorted[0].Level)
	assert.Equal(t, types.ColorGreen, sorted[1].Color)
	assert.Equal(t, types.ColorRed, sorted[2].Color)
}
