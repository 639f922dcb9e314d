// internal/web/server.go
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"deriv-streak-monitor/internal/monitor"
	"deriv-streak-monitor/internal/types"
	"deriv-streak-monitor/pkg/logger"
)

// ConfigUpdater - доступ к изменяемым на лету параметрам анализа.
// Реализуется config.Config.
type ConfigUpdater interface {
	Analysis() types.AnalysisConfig
	UpdateAnalysis(a types.AnalysisConfig) error
}

// Server - тонкая HTTP-обертка над доской: keep-alive корень,
// поллинг снапшота и обновление конфигурации оператором.
type Server struct {
	board      *monitor.Board
	config     ConfigUpdater
	httpServer *http.Server
}

// configUpdateRequest - тело POST /api/config.
// Поля-указатели: отсутствующее поле наследует текущее значение.
// Символ на лету не меняется: хранилище тиков и backfill привязаны
// к одному инструменту, смешивать их в окне анализа нельзя.
type configUpdateRequest struct {
	MinCycle    *int64   `json:"min_cycle,omitempty"`
	MaxCycle    *int64   `json:"max_cycle,omitempty"`
	MinStrength *float64 `json:"min_strength,omitempty"`
	MaxStrength *float64 `json:"max_strength,omitempty"`
}

// NewServer создает HTTP-сервер дашборда
func NewServer(board *monitor.Board, config ConfigUpdater, port string) *Server {
	s := &Server{
		board:  board,
		config: config,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/config", s.handleConfig)

	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start запускает HTTP-сервер в фоновой горутине
func (s *Server) Start() {
	go func() {
		logger.Info("🌐 Web: сервер слушает %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("❌ Web: сервер упал: %v", err)
		}
	}()
}

// Stop останавливает HTTP-сервер с graceful shutdown
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("⚠️ Web: ошибка остановки сервера: %v", err)
	}
	logger.Info("🛑 Web: сервер остановлен")
}

// handleRoot - keep-alive для хостинга (Render будит процесс по HTTP)
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, "Streak monitor is running! 🟢")
}

// handleStatus отдает последний снапшот анализа
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.board.Snapshot())
}

// handleConfig применяет новые параметры анализа.
// Изменения вступают в силу со следующего прохода.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req configUpdateRequest
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "невалидный JSON: " + err.Error()})
		return
	}

	updated := s.config.Analysis()
	if req.MinCycle != nil {
		updated.MinCycle = *req.MinCycle
	}
	if req.MaxCycle != nil {
		updated.MaxCycle = *req.MaxCycle
	}
	if req.MinStrength != nil {
		updated.MinStrength = *req.MinStrength
	}
	if req.MaxStrength != nil {
		updated.MaxStrength = *req.MaxStrength
	}

	if err := s.config.UpdateAnalysis(updated); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	logger.Info("🔧 Web: конфигурация обновлена: cycle [%d, %d], strength [%.1f, %.1f]",
		updated.MinCycle, updated.MaxCycle, updated.MinStrength, updated.MaxStrength)
	writeJSON(w, http.StatusOK, updated)
}

// writeJSON сериализует ответ с заголовком Content-Type
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("❌ Web: ошибка сериализации ответа: %v", err)
	}
}
