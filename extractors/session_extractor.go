package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/utils"
)

// SessionExtractor извлекает сессии пользователей из исходной БД
type SessionExtractor struct {
	logger *utils.ETLLogger
}

// NewSessionExtractor создает новый экземпляр SessionExtractor
func NewSessionExtractor(logger *utils.ETLLogger) *SessionExtractor {
	return &SessionExtractor{
		logger: logger,
	}
}

// ExtractSessions извлекает все сессии из таблицы user_sessions источника
// Каждая строка помечается идентификатором источника, так как id сессии
// уникален только в пределах одного источника
func (e *SessionExtractor) ExtractSessions(ctx context.Context, db *sql.DB, sourceID string) ([]models.SessionRecord, error) {
	e.logger.Debug("Извлечение сессий из источника %s", sourceID)

	query := `
		SELECT id, user_id, last_activity_at
		FROM user_sessions
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		e.logger.Error("Ошибка при извлечении сессий из источника %s: %v", sourceID, err)
		return nil, fmt.Errorf("ошибка запроса сессий источника %s: %w", sourceID, err)
	}
	defer rows.Close()

	var sessions []models.SessionRecord
	for rows.Next() {
		session := models.SessionRecord{SourceID: sourceID}
		if err := rows.Scan(&session.SessionID, &session.UserID, &session.LastActivityAt); err != nil {
			e.logger.Error("Ошибка при обработке данных сессии из источника %s: %v", sourceID, err)
			return nil, fmt.Errorf("ошибка обработки данных сессии источника %s: %w", sourceID, err)
		}
		sessions = append(sessions, session)
	}

	// Проверяем ошибки после итерации по результатам
	if err = rows.Err(); err != nil {
		e.logger.Error("Ошибка после итерации по сессиям источника %s: %v", sourceID, err)
		return nil, fmt.Errorf("ошибка после итерации по сессиям источника %s: %w", sourceID, err)
	}

	e.logger.Debug("Извлечено %d сессий из источника %s", len(sessions), sourceID)
	return sessions, nil
}
