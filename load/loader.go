package load

import (
	"context"
	"database/sql"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/utils"
)

// Loader интерфейс для загрузки обогащенных сессий в аналитическую БД
type Loader interface {
	// LoadSessions присваивает глобальные идентификаторы и дописывает
	// строки в analytics_sessions; возвращает количество записанных строк
	LoadSessions(ctx context.Context, sessions []models.EnrichedSessionRecord) (int, error)
}

// AnalyticsLoader реализация Loader для целевой таблицы analytics_sessions
type AnalyticsLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger

	sessionLoader *SessionLoader
}

// NewAnalyticsLoader создает новый экземпляр AnalyticsLoader
func NewAnalyticsLoader(db *sql.DB, logger *utils.ETLLogger) *AnalyticsLoader {
	return &AnalyticsLoader{
		db:            db,
		logger:        logger,
		sessionLoader: NewSessionLoader(db, logger),
	}
}

// LoadSessions загружает обогащенные сессии в analytics_sessions
func (l *AnalyticsLoader) LoadSessions(ctx context.Context, sessions []models.EnrichedSessionRecord) (int, error) {
	return l.sessionLoader.Load(ctx, sessions)
}
