// cmd/bot/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"deriv-streak-monitor/internal/config"
	"deriv-streak-monitor/internal/core/domain/backfill"
	"deriv-streak-monitor/internal/infrastructure/api/deriv/ws"
	rediscache "deriv-streak-monitor/internal/infrastructure/cache/redis"
	"deriv-streak-monitor/internal/monitor"
	"deriv-streak-monitor/internal/scheduler"
	"deriv-streak-monitor/internal/storage"
	"deriv-streak-monitor/internal/web"
	"deriv-streak-monitor/pkg/logger"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}

	// Инициализируем глобальный логгер
	if err := logger.InitGlobal(cfg.LogFile, cfg.LogLevel, cfg.Debug); err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer logger.GetLogger().Close()

	analysis := cfg.Analysis()

	// Выводим информацию о конфигурации
	printHeader("МОНИТОР СЕРИЙ СВЕЧЕЙ DERIV")
	fmt.Printf("🔧 Конфигурация:\n")
	fmt.Printf("   Символ: %s\n", analysis.Symbol)
	fmt.Printf("   Циклы: %d–%d сек\n", analysis.MinCycle, analysis.MaxCycle)
	fmt.Printf("   Сила: %.1f–%.1f%%\n", analysis.MinStrength, analysis.MaxStrength)
	fmt.Printf("   История: %d дн., окно анализа: %d ч\n", cfg.BackfillDays, cfg.LookbackHours)
	fmt.Printf("   Проход анализа: каждые %v\n", cfg.PassInterval)
	if cfg.RedisAddr != "" {
		fmt.Printf("   Зеркало снапшота: Redis %s\n", cfg.RedisAddr)
	}
	fmt.Println()

	// Хранилище тиков
	store := storage.NewTickStorage()

	// Доска с последним снапшотом для дашборда
	board := monitor.NewBoard("Starting...")

	// Опциональное зеркало снапшота в Redis
	var mirror scheduler.SnapshotMirror
	if cfg.RedisAddr != "" {
		cache := rediscache.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			logger.Warn("⚠️ Redis недоступен (%v), зеркало снапшота отключено", err)
		} else {
			mirror = cache
			defer cache.Close()
		}
		cancel()
	}

	// Backfill: параллельная дозагрузка истории
	fetcher := backfill.NewDerivFetcher(cfg.WSUrl, cfg.AppID, cfg.ApiToken)
	loader := backfill.NewLoader(fetcher, store, analysis.Symbol,
		cfg.ChunkSeconds, cfg.FetchWorkers, cfg.FetchTimeout)

	// Live-подписка на тики того же инструмента, что и backfill
	watcher := ws.NewTickWatcher(cfg.WSUrl, cfg.AppID, cfg.ApiToken,
		analysis.Symbol, cfg.LiveBackoff, store, board)

	// Планировщик анализа: backfill → live → цикл проходов
	sched := scheduler.New(cfg, store, board, loader, watcher, mirror,
		cfg.PassInterval,
		time.Duration(cfg.LookbackHours)*time.Hour,
		time.Duration(cfg.BackfillDays)*24*time.Hour,
		cfg.MinCandles)
	sched.Start()

	// HTTP: keep-alive + поллинг снапшота + обновление конфигурации
	server := web.NewServer(board, cfg, cfg.HttpPort)
	server.Start()

	// Ждем сигнал остановки
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("🛑 Получен сигнал %v, останавливаемся...", sig)

	server.Stop()
	sched.Stop()

	stats := store.Stats()
	logger.Info("📊 Итог: тиков принято %d, дублей отвергнуто %d", stats.Inserted, stats.Duplicates)
}

// printHeader печатает заголовок запуска
func printHeader(title string) {
	line := strings.Repeat("═", 50)
	fmt.Println(line)
	fmt.Printf("   %s\n", title)
	fmt.Println(line)
}
