// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"deriv-streak-monitor/internal/types"
)

// Config - конфигурация приложения.
// Статические поля заполняются из .env один раз при старте.
// Параметры анализа изменяемы на лету через UpdateAnalysis и
// читаются планировщиком заново на каждом проходе.
type Config struct {
	// Deriv API
	ApiToken string
	AppID    string
	WSUrl    string

	// Backfill
	BackfillDays  int           // Сколько дней истории догружать при старте
	ChunkSeconds  int64         // Размер чанка истории (лимит фида — 600 сек)
	FetchWorkers  int           // Размер пула воркеров backfill
	FetchTimeout  time.Duration // Таймаут одного запроса истории
	LiveBackoff   time.Duration // Пауза перед переподключением live-фида
	LookbackHours int           // Скользящее окно анализа в часах

	// Analysis
	PassInterval time.Duration // Целевая периодичность проходов анализа
	MinCandles   int           // Минимум свечей для скоринга одной пары (cycle, offset)

	// HTTP Server
	HttpPort string

	// Redis (зеркало снапшота, опционально)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel string
	LogFile  string
	Debug    bool

	mu       sync.RWMutex
	analysis types.AnalysisConfig
}

// LoadConfig загружает конфигурацию из .env файла
func LoadConfig(envPath string) (*Config, error) {
	// Загружаем .env файл
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
	}

	apiToken := getEnvString("DERIV_TOKEN", "")
	if apiToken == "" {
		return nil, fmt.Errorf("API token is required. Please set DERIV_TOKEN in .env file")
	}

	cfg := &Config{
		ApiToken: apiToken,
		AppID:    getEnvString("DERIV_APP_ID", "1089"),
		WSUrl:    getEnvString("DERIV_WS_URL", "wss://ws.derivws.com/websockets/v3"),

		BackfillDays:  getEnvInt("BACKFILL_DAYS", 2),
		ChunkSeconds:  int64(getEnvInt("CHUNK_SECONDS", 600)),
		FetchWorkers:  getEnvInt("FETCH_WORKERS", 5),
		FetchTimeout:  time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 10)) * time.Second,
		LiveBackoff:   time.Duration(getEnvInt("LIVE_BACKOFF_SEC", 5)) * time.Second,
		LookbackHours: getEnvInt("LOOKBACK_HOURS", 4),

		PassInterval: time.Duration(getEnvInt("PASS_INTERVAL_SEC", 30)) * time.Second,
		MinCandles:   getEnvInt("MIN_CANDLES", 5),

		HttpPort: getEnvString("HTTP_PORT", "10000"),

		RedisAddr:     getEnvString("REDIS_ADDR", ""),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnvString("LOG_LEVEL", "INFO"),
		LogFile:  getEnvString("LOG_FILE", "logs/monitor.log"),
		Debug:    getEnvBool("DEBUG", false),

		analysis: types.AnalysisConfig{
			Symbol:      getEnvString("SYMBOL", "R_100"),
			MinCycle:    int64(getEnvInt("MIN_CYCLE", 60)),
			MaxCycle:    int64(getEnvInt("MAX_CYCLE", 300)),
			MinStrength: getEnvFloat("MIN_STRENGTH", 70),
			MaxStrength: getEnvFloat("MAX_STRENGTH", 100),
		},
	}

	if err := validateAnalysis(cfg.analysis); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Analysis возвращает копию текущих параметров анализа
func (c *Config) Analysis() types.AnalysisConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysis
}

// UpdateAnalysis применяет новые параметры анализа.
// Текущий проход не затрагивается — планировщик перечитает
// параметры в начале следующего прохода.
func (c *Config) UpdateAnalysis(a types.AnalysisConfig) error {
	if err := validateAnalysis(a); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.analysis = a
	return nil
}

// validateAnalysis проверяет границы параметров анализа
func validateAnalysis(a types.AnalysisConfig) error {
	if a.Symbol == "" {
		return fmt.Errorf("symbol не может быть пустым")
	}
	if a.MinCycle <= 0 {
		return fmt.Errorf("min_cycle должен быть > 0, получено %d", a.MinCycle)
	}
	if a.MaxCycle < a.MinCycle {
		return fmt.Errorf("max_cycle (%d) меньше min_cycle (%d)", a.MaxCycle, a.MinCycle)
	}
	if a.MinStrength < 0 || a.MaxStrength > 100 || a.MinStrength > a.MaxStrength {
		return fmt.Errorf("некорректные границы силы: [%.1f, %.1f]", a.MinStrength, a.MaxStrength)
	}
	return nil
}

// Вспомогательные функции для чтения переменных окружения

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
