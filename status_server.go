// status_server.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/gorilla/mux"
)

// Период статистики запусков по умолчанию (в днях)
const defaultStatsDays = 7

// ServeStatus запускает HTTP-сервер статуса ETL поверх журнала запусков
func (r *ETLRunner) ServeStatus(ctx context.Context) error {
	router := mux.NewRouter()

	// Настраиваем CORS
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if req.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	// Регистрируем обработчики
	router.HandleFunc("/api/etl/status", GetStatusHandler(r.etlLogRepo)).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/etl/runs", GetRunsHandler(r.etlLogRepo)).Methods("GET", "OPTIONS")

	// Настраиваем сервер
	server := &http.Server{
		Addr:         r.cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("Сервер статуса ETL запущен на %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		r.logger.Info("Останавливаем сервер статуса ETL...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// GetStatusHandler обрабатывает запросы сводного состояния ETL
func GetStatusHandler(repo models.ETLLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		monitor, err := repo.GetETLStateMonitor()
		if err != nil {
			log.Printf("Ошибка при получении состояния ETL: %v", err)
			http.Error(w, "Ошибка при получении состояния ETL", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(monitor); err != nil {
			log.Printf("Ошибка при кодировании JSON: %v", err)
			http.Error(w, "Ошибка при формировании ответа", http.StatusInternalServerError)
			return
		}
	}
}

// GetRunsHandler обрабатывает запросы статистики запусков ETL
// Параметр days задает период выборки (по умолчанию 7 дней)
func GetRunsHandler(repo models.ETLLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		days := defaultStatsDays
		if daysStr := req.URL.Query().Get("days"); daysStr != "" {
			parsed, err := strconv.Atoi(daysStr)
			if err != nil || parsed <= 0 {
				http.Error(w, "Неверный формат параметра days", http.StatusBadRequest)
				return
			}
			days = parsed
		}

		runs, err := repo.GetETLRunStats(days)
		if err != nil {
			log.Printf("Ошибка при получении статистики запусков ETL: %v", err)
			http.Error(w, "Ошибка при получении статистики запусков ETL", http.StatusInternalServerError)
			return
		}

		response := struct {
			Runs []models.ETLRunLog `json:"runs"`
		}{Runs: runs}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			log.Printf("Ошибка при кодировании JSON: %v", err)
			http.Error(w, "Ошибка при формировании ответа", http.StatusInternalServerError)
			return
		}
	}
}
