package load

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/utils"
)

// Ключ advisory-блокировки, сериализующей выделение блока session_id
// между конкурентными запусками пайплайна
const sessionIDLockKey = 815042

// SessionLoader отвечает за дозапись обогащенных сессий в analytics_sessions
type SessionLoader struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewSessionLoader создает новый экземпляр SessionLoader
func NewSessionLoader(db *sql.DB, logger *utils.ETLLogger) *SessionLoader {
	return &SessionLoader{
		db:     db,
		logger: logger,
	}
}

// Load присваивает сессиям непрерывный блок session_id, начиная с max+1,
// и дописывает все строки в analytics_sessions
//
// Блокировка, чтение максимума и вставка выполняются в одной транзакции:
// два конкурентных запуска не могут получить одинаковый стартовый
// идентификатор, а при любой ошибке вставки не остается частично
// зафиксированных строк
func (l *SessionLoader) Load(ctx context.Context, sessions []models.EnrichedSessionRecord) (int, error) {
	if len(sessions) == 0 {
		l.logger.Debug("Нет обогащенных сессий для загрузки")
		return 0, nil
	}

	startTime := time.Now()
	l.logger.Info("Начало загрузки сессий в analytics_sessions (всего: %d)", len(sessions))

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer tx.Rollback()

	// Транзакционная advisory-блокировка: снимается автоматически
	// при фиксации или откате транзакции
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", sessionIDLockKey); err != nil {
		return 0, fmt.Errorf("ошибка при получении блокировки выделения идентификаторов: %w", err)
	}

	// Читаем текущий максимум внутри той же транзакции
	var maxID int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(session_id), 0) FROM analytics_sessions").Scan(&maxID); err != nil {
		return 0, fmt.Errorf("ошибка при получении максимального session_id: %w", err)
	}

	rows := AssignGlobalIDs(sessions, maxID+1)
	l.logger.Debug("Выделен блок идентификаторов %d..%d", maxID+1, maxID+int64(len(rows)))

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analytics_sessions
		(session_id, user_id, session_date, last_activity_at, events_count,
		transactions_sum_converted, first_successful_transaction_converted,
		first_successful_transaction_time, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подготовке запроса вставки: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		firstTransactionTime := sql.NullTime{}
		if row.FirstTransactionTime != nil {
			firstTransactionTime = sql.NullTime{Time: *row.FirstTransactionTime, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			row.GlobalID,
			row.UserID,
			row.SessionDate,
			row.LastActivityAt,
			row.EventsCount,
			row.TransactionsSumConverted,
			row.FirstTransactionConverted,
			firstTransactionTime,
			row.SourceID,
		); err != nil {
			l.logger.Error("Ошибка при вставке строки session_id=%d: %v", row.GlobalID, err)
			return 0, fmt.Errorf("ошибка вставки строки session_id=%d: %w", row.GlobalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ошибка при фиксации транзакции загрузки: %w", err)
	}

	l.logger.Info("Загрузка сессий завершена. Загружено строк: %d. Длительность: %v", len(rows), time.Since(startTime))
	return len(rows), nil
}

// AssignGlobalIDs присваивает строкам непрерывную возрастающую
// последовательность идентификаторов, начиная с startID,
// в порядке следования входных записей
func AssignGlobalIDs(sessions []models.EnrichedSessionRecord, startID int64) []models.AnalyticsSessionRow {
	rows := make([]models.AnalyticsSessionRow, 0, len(sessions))
	for i, session := range sessions {
		rows = append(rows, models.AnalyticsSessionRow{
			GlobalID:              startID + int64(i),
			EnrichedSessionRecord: session,
		})
	}
	return rows
}
