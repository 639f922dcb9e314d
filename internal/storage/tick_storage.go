// internal/storage/tick_storage.go
package storage

import (
	"sort"
	"sync"

	"deriv-streak-monitor/internal/types"
)

// TickStorage - дедуплицированное in-memory хранилище тиков,
// упорядоченное по SortKey. Общий субстрат для backfill-воркеров,
// live-подписчика и читателя анализа: запись сериализуется мьютексом,
// чтение отдает консистентный срез-копию.
//
// Живет только в памяти процесса и сбрасывается при рестарте.
type TickStorage struct {
	mu sync.RWMutex

	// Тики, отсортированные по SortKey по возрастанию
	ticks []types.Tick

	// Множество ключей для дедупликации
	keys map[int64]struct{}

	// Статистика
	stats StorageStats
}

// StorageStats - счетчики хранилища
type StorageStats struct {
	Inserted   int64 // Принятых тиков
	Duplicates int64 // Отвергнутых дублей SortKey
}

// NewTickStorage создает новое хранилище тиков
func NewTickStorage() *TickStorage {
	return &TickStorage{
		ticks: make([]types.Tick, 0, 4096),
		keys:  make(map[int64]struct{}),
	}
}

// InsertOne вставляет один тик. Возвращает false, если тик
// с таким SortKey уже есть (дубликат — определенный no-op).
func (s *TickStorage) InsertOne(tick types.Tick) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(tick)
}

// InsertBatch вставляет пачку тиков и возвращает число реально принятых.
// Идемпотентна по SortKey: пересекающиеся диапазоны backfill и live
// сосуществуют без двойного счета.
func (s *TickStorage) InsertBatch(ticks []types.Tick) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, tick := range ticks {
		if s.insertLocked(tick) {
			inserted++
		}
	}
	return inserted
}

// insertLocked вставляет тик с сохранением порядка. Вызывается под mu.
func (s *TickStorage) insertLocked(tick types.Tick) bool {
	if _, exists := s.keys[tick.SortKey]; exists {
		s.stats.Duplicates++
		return false
	}
	s.keys[tick.SortKey] = struct{}{}
	s.stats.Inserted++

	// Частый случай: тик новее всех (live-поток) — просто append
	n := len(s.ticks)
	if n == 0 || s.ticks[n-1].SortKey < tick.SortKey {
		s.ticks = append(s.ticks, tick)
		return true
	}

	// Иначе бинарным поиском находим позицию вставки
	idx := sort.Search(n, func(i int) bool {
		return s.ticks[i].SortKey > tick.SortKey
	})
	s.ticks = append(s.ticks, types.Tick{})
	copy(s.ticks[idx+1:], s.ticks[idx:])
	s.ticks[idx] = tick
	return true
}

// RangeSince возвращает копию всех тиков с Epoch >= minEpoch,
// упорядоченных по SortKey по возрастанию
func (s *TickStorage) RangeSince(minEpoch int64) []types.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// SortKey монотонен по Epoch, поэтому граница ищется по ключу
	minKey := minEpoch * types.SortKeyFactor
	idx := sort.Search(len(s.ticks), func(i int) bool {
		return s.ticks[i].SortKey >= minKey
	})

	result := make([]types.Tick, len(s.ticks)-idx)
	copy(result, s.ticks[idx:])
	return result
}

// LatestPrice возвращает цену самого свежего тика
func (s *TickStorage) LatestPrice() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ticks) == 0 {
		return 0, false
	}
	return s.ticks[len(s.ticks)-1].Price, true
}

// Count возвращает количество тиков в хранилище
func (s *TickStorage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ticks)
}

// Stats возвращает счетчики хранилища
func (s *TickStorage) Stats() StorageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}
