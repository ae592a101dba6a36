package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/analytics_etl/config"
	"github.com/LilVoxy/analytics_etl/storage"
	"github.com/LilVoxy/analytics_etl/utils"
)

// LoadManager отвечает за фазу Load: чтение артефакта фазы Enrich
// и дозапись строк в целевую таблицу
type LoadManager struct {
	cfg       *config.ETLConfig
	logger    *utils.ETLLogger
	loader    Loader
	artifacts *storage.ArtifactStore
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(cfg *config.ETLConfig, db *sql.DB, logger *utils.ETLLogger) *LoadManager {
	return &LoadManager{
		cfg:       cfg,
		logger:    logger,
		loader:    NewAnalyticsLoader(db, logger),
		artifacts: storage.NewArtifactStore(cfg.EnrichedDataPath, cfg.CompressArtifacts),
	}
}

// Load выполняет фазу загрузки данных и возвращает количество записанных строк
func (m *LoadManager) Load(ctx context.Context) (int, error) {
	startTime := time.Now()
	m.logger.LogLoadStart()

	// Читаем артефакт фазы Enrich; его отсутствие прерывает фазу
	sessions, err := m.artifacts.ReadEnrichedSessions()
	if err != nil {
		m.logger.Error("Ошибка при чтении артефакта обогащенных сессий: %v", err)
		return 0, fmt.Errorf("ошибка чтения артефакта обогащенных сессий: %w", err)
	}
	m.logger.Info("Загружено %d обогащенных сессий из артефакта", len(sessions))

	loadCtx, cancel := context.WithTimeout(ctx, m.cfg.QueryTimeout)
	defer cancel()

	rowsWritten, err := m.loader.LoadSessions(loadCtx, sessions)
	if err != nil {
		m.logger.Error("Ошибка при загрузке сессий: %v", err)
		return 0, fmt.Errorf("ошибка загрузки сессий: %w", err)
	}

	m.logger.LogLoadComplete(rowsWritten, time.Since(startTime))
	return rowsWritten, nil
}
