package extractors

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/utils"
)

// EventExtractor извлекает агрегированные счетчики событий из исходной БД
type EventExtractor struct {
	logger *utils.ETLLogger
}

// NewEventExtractor создает новый экземпляр EventExtractor
func NewEventExtractor(logger *utils.ETLLogger) *EventExtractor {
	return &EventExtractor{
		logger: logger,
	}
}

// ExtractEventCounts извлекает количество событий, сгруппированное
// по (user_id, id сессии), из таблицы events источника
func (e *EventExtractor) ExtractEventCounts(ctx context.Context, db *sql.DB, sourceID string) ([]models.EventCount, error) {
	e.logger.Debug("Извлечение счетчиков событий из источника %s", sourceID)

	query := `
		SELECT user_id, id AS session_id, COUNT(*) AS events_count
		FROM events
		GROUP BY user_id, id
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		e.logger.Error("Ошибка при извлечении событий из источника %s: %v", sourceID, err)
		return nil, fmt.Errorf("ошибка запроса событий источника %s: %w", sourceID, err)
	}
	defer rows.Close()

	var counts []models.EventCount
	for rows.Next() {
		count := models.EventCount{SourceID: sourceID}
		if err := rows.Scan(&count.UserID, &count.SessionID, &count.EventsCount); err != nil {
			e.logger.Error("Ошибка при обработке счетчика событий из источника %s: %v", sourceID, err)
			return nil, fmt.Errorf("ошибка обработки счетчика событий источника %s: %w", sourceID, err)
		}
		counts = append(counts, count)
	}

	// Проверяем ошибки после итерации по результатам
	if err = rows.Err(); err != nil {
		e.logger.Error("Ошибка после итерации по событиям источника %s: %v", sourceID, err)
		return nil, fmt.Errorf("ошибка после итерации по событиям источника %s: %w", sourceID, err)
	}

	e.logger.Debug("Извлечено %d счетчиков событий из источника %s", len(counts), sourceID)
	return counts, nil
}
