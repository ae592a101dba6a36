// Package enrich реализует фазу Enrich: объединение извлеченных сессий
// с журналом транзакций и курсами обмена аналитической БД.
package enrich

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/analytics_etl/config"
	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/storage"
	"github.com/LilVoxy/analytics_etl/utils"
)

// Enricher координирует фазу Enrich: читает артефакт фазы Extract,
// извлекает транзакции и курсы из аналитической БД, обогащает сессии
// и сохраняет артефакт для фазы Load
type Enricher struct {
	cfg                *config.ETLConfig
	logger             *utils.ETLLogger
	analyticsExtractor *AnalyticsExtractor
	extractedStore     *storage.ArtifactStore
	enrichedStore      *storage.ArtifactStore
}

// NewEnricher создает новый экземпляр Enricher
func NewEnricher(cfg *config.ETLConfig, analyticsDB *sql.DB, logger *utils.ETLLogger) *Enricher {
	return &Enricher{
		cfg:                cfg,
		logger:             logger,
		analyticsExtractor: NewAnalyticsExtractor(analyticsDB, logger),
		extractedStore:     storage.NewArtifactStore(cfg.ExtractedDataPath, cfg.CompressArtifacts),
		enrichedStore:      storage.NewArtifactStore(cfg.EnrichedDataPath, cfg.CompressArtifacts),
	}
}

// Enrich выполняет фазу обогащения данных
// Гарантия: количество выходных записей равно количеству входных сессий;
// артефакт записывается только после полного успеха фазы
func (e *Enricher) Enrich(ctx context.Context) ([]models.EnrichedSessionRecord, error) {
	startTime := time.Now()
	e.logger.LogEnrichStart()

	// Читаем артефакт фазы Extract; его отсутствие прерывает фазу
	sessions, err := e.extractedStore.ReadSessions()
	if err != nil {
		e.logger.Error("Ошибка при чтении артефакта извлеченных сессий: %v", err)
		return nil, fmt.Errorf("ошибка чтения артефакта извлеченных сессий: %w", err)
	}
	e.logger.Info("Загружено %d извлеченных сессий", len(sessions))

	queryCtx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	transactions, err := e.analyticsExtractor.ExtractTransactions(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения транзакций: %w", err)
	}

	rates, err := e.analyticsExtractor.ExtractExchangeRates(queryCtx)
	if err != nil {
		return nil, fmt.Errorf("ошибка извлечения курсов обмена: %w", err)
	}

	e.logger.Info("Загружено транзакций: %d, курсов обмена: %d", len(transactions), len(rates))

	enriched := EnrichSessions(sessions, transactions, rates)

	// Контроль центрального инварианта фазы: ни одна сессия
	// не потеряна и не продублирована
	if len(enriched) != len(sessions) {
		return nil, fmt.Errorf("нарушен инвариант обогащения: %d сессий на входе, %d на выходе", len(sessions), len(enriched))
	}

	if err := e.enrichedStore.WriteEnrichedSessions(enriched); err != nil {
		e.logger.Error("Ошибка при сохранении артефакта обогащенных сессий: %v", err)
		return nil, fmt.Errorf("ошибка сохранения артефакта обогащенных сессий: %w", err)
	}

	e.logger.Info("Артефакт сохранен: %s", e.enrichedStore.Path(storage.EnrichedFileName))
	e.logger.LogEnrichComplete(len(enriched), time.Since(startTime))

	return enriched, nil
}
