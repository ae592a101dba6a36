package extractors

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/analytics_etl/config"
	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/storage"
	"github.com/LilVoxy/analytics_etl/utils"
)

// Extractor координирует фазу Extract: обходит все источники,
// объединяет их сессии в один набор и сохраняет артефакт для фазы Enrich
type Extractor struct {
	cfg              *config.ETLConfig
	connections      *config.DBConnections
	logger           *utils.ETLLogger
	sessionExtractor *SessionExtractor
	eventExtractor   *EventExtractor
	artifacts        *storage.ArtifactStore
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(cfg *config.ETLConfig, connections *config.DBConnections, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		cfg:              cfg,
		connections:      connections,
		logger:           logger,
		sessionExtractor: NewSessionExtractor(logger),
		eventExtractor:   NewEventExtractor(logger),
		artifacts:        storage.NewArtifactStore(cfg.ExtractedDataPath, cfg.CompressArtifacts),
	}
}

// Extract выполняет фазу извлечения данных для всех источников
// Источники обходятся последовательно; первая недоступная база данных
// прерывает всю фазу целиком
func (e *Extractor) Extract(ctx context.Context) (*models.ExtractedData, error) {
	startTime := time.Now()
	e.logger.LogExtractStart(len(e.cfg.Sources))

	var allSessions []models.SessionRecord

	for _, source := range e.cfg.Sources {
		sessions, err := e.extractSource(ctx, source)
		if err != nil {
			e.logger.Error("Ошибка при извлечении данных из источника %s: %v", source.SourceID, err)
			return nil, fmt.Errorf("ошибка извлечения из источника %s: %w", source.SourceID, err)
		}
		allSessions = append(allSessions, sessions...)
	}

	extractedData := &models.ExtractedData{
		Sessions:         allSessions,
		SourcesProcessed: len(e.cfg.Sources),
		ExtractedAt:      time.Now(),
	}

	// Сохраняем объединенный набор как артефакт для фазы Enrich
	if err := e.artifacts.WriteSessions(allSessions); err != nil {
		e.logger.Error("Ошибка при сохранении артефакта извлеченных сессий: %v", err)
		return nil, fmt.Errorf("ошибка сохранения артефакта извлеченных сессий: %w", err)
	}

	e.logger.Info("Артефакт сохранен: %s", e.artifacts.Path(storage.ExtractedFileName))
	e.logger.LogExtractComplete(len(allSessions), len(e.cfg.Sources), time.Since(startTime))

	return extractedData, nil
}

// extractSource извлекает сессии и счетчики событий одного источника
// и выполняет left join сессий к счетчикам
func (e *Extractor) extractSource(ctx context.Context, source models.SourceDescriptor) ([]models.SessionRecord, error) {
	e.logger.Info("Извлечение данных из источника %s...", source.SourceID)

	db, err := e.connections.SourceFor(source)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	sessions, err := e.sessionExtractor.ExtractSessions(queryCtx, db, source.SourceID)
	if err != nil {
		return nil, err
	}

	counts, err := e.eventExtractor.ExtractEventCounts(queryCtx, db, source.SourceID)
	if err != nil {
		return nil, err
	}

	return joinEvents(sessions, counts), nil
}

// joinEvents выполняет left join сессий к счетчикам событий
// по ключу (session_id, user_id); сессии без событий получают events_count = 0
func joinEvents(sessions []models.SessionRecord, counts []models.EventCount) []models.SessionRecord {
	type sessionKey struct {
		sessionID int64
		userID    int64
	}

	countsByKey := make(map[sessionKey]int, len(counts))
	for _, count := range counts {
		countsByKey[sessionKey{count.SessionID, count.UserID}] = count.EventsCount
	}

	joined := make([]models.SessionRecord, 0, len(sessions))
	for _, session := range sessions {
		session.EventsCount = countsByKey[sessionKey{session.SessionID, session.UserID}]
		joined = append(joined, session)
	}

	return joined
}
