package load

import (
	"database/sql"
	"fmt"
)

// CreateAnalyticsSessionsTable создает целевую таблицу analytics_sessions,
// если она не существует
//
// session_id объявлен первичным ключом: даже при ошибочном обходе
// блокировки выделения идентификаторов дубликат будет отклонен базой данных
func CreateAnalyticsSessionsTable(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS analytics_sessions (
		session_id BIGINT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		session_date DATE NOT NULL,
		last_activity_at TIMESTAMPTZ NOT NULL,
		events_count INT NOT NULL DEFAULT 0,
		transactions_sum_converted DOUBLE PRECISION NOT NULL DEFAULT 0,
		first_successful_transaction_converted DOUBLE PRECISION NOT NULL DEFAULT 0,
		first_successful_transaction_time TIMESTAMPTZ NULL,
		source_id TEXT NOT NULL
	);
	`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы analytics_sessions: %w", err)
	}

	return nil
}
