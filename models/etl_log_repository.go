package models

import (
	"database/sql"
	"fmt"
	"time"
)

// PostgresETLLogRepository реализация ETLLogRepository для PostgreSQL
type PostgresETLLogRepository struct {
	db *sql.DB
}

// NewPostgresETLLogRepository создает новый экземпляр PostgresETLLogRepository
func NewPostgresETLLogRepository(db *sql.DB) *PostgresETLLogRepository {
	return &PostgresETLLogRepository{
		db: db,
	}
}

// CreateETLLogTable создает таблицу журнала запусков ETL, если она не существует
func (r *PostgresETLLogRepository) CreateETLLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS etl_runs (
		id SERIAL PRIMARY KEY,
		run_id UUID NOT NULL,
		mode TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NULL,
		status TEXT NOT NULL DEFAULT 'in_progress',
		sources_processed INT DEFAULT 0,
		sessions_extracted INT DEFAULT 0,
		sessions_loaded INT DEFAULT 0,
		error_message TEXT,
		execution_time_seconds DOUBLE PRECISION
	);
	`

	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_runs: %w", err)
	}

	return nil
}

// CreateLogEntry создает новую запись о запуске ETL и возвращает ее ID
func (r *PostgresETLLogRepository) CreateLogEntry(runID, mode string, startTime time.Time) (int, error) {
	query := `
	INSERT INTO etl_runs (run_id, mode, start_time, status)
	VALUES ($1, $2, $3, 'in_progress')
	RETURNING id
	`

	var id int
	if err := r.db.QueryRow(query, runID, mode, startTime).Scan(&id); err != nil {
		return 0, fmt.Errorf("ошибка при создании записи о запуске ETL: %w", err)
	}

	return id, nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении ETL
func (r *PostgresETLLogRepository) UpdateLogEntrySuccess(
	id int,
	endTime time.Time,
	sourcesProcessed,
	sessionsExtracted,
	sessionsLoaded int) error {

	// Рассчитываем время выполнения в секундах
	var startTime time.Time
	err := r.db.QueryRow("SELECT start_time FROM etl_runs WHERE id = $1", id).Scan(&startTime)
	if err != nil {
		return fmt.Errorf("ошибка при получении времени начала ETL: %w", err)
	}

	executionTime := endTime.Sub(startTime).Seconds()

	query := `
	UPDATE etl_runs
	SET
		end_time = $1,
		status = 'success',
		sources_processed = $2,
		sessions_extracted = $3,
		sessions_loaded = $4,
		execution_time_seconds = $5
	WHERE id = $6
	`

	_, err = r.db.Exec(query, endTime, sourcesProcessed, sessionsExtracted, sessionsLoaded, executionTime, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении ETL
func (r *PostgresETLLogRepository) UpdateLogEntryFailure(id int, endTime time.Time, errorMessage string) error {
	// Рассчитываем время выполнения в секундах
	var startTime time.Time
	err := r.db.QueryRow("SELECT start_time FROM etl_runs WHERE id = $1", id).Scan(&startTime)
	if err != nil {
		return fmt.Errorf("ошибка при получении времени начала ETL: %w", err)
	}

	executionTime := endTime.Sub(startTime).Seconds()

	query := `
	UPDATE etl_runs
	SET
		end_time = $1,
		status = 'failed',
		error_message = $2,
		execution_time_seconds = $3
	WHERE id = $4
	`

	_, err = r.db.Exec(query, endTime, errorMessage, executionTime, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске ETL: %w", err)
	}

	return nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске ETL
func (r *PostgresETLLogRepository) GetLastSuccessfulRun() (*ETLRunLog, error) {
	query := `
	SELECT
		id, run_id, mode, start_time, end_time, status,
		sources_processed, sessions_extracted, sessions_loaded,
		COALESCE(error_message, ''), COALESCE(execution_time_seconds, 0)
	FROM etl_runs
	WHERE status = 'success'
	ORDER BY end_time DESC
	LIMIT 1
	`

	var runLog ETLRunLog
	err := r.db.QueryRow(query).Scan(
		&runLog.ID, &runLog.RunID, &runLog.Mode, &runLog.StartTime, &runLog.EndTime, &runLog.Status,
		&runLog.SourcesProcessed, &runLog.SessionsExtracted, &runLog.SessionsLoaded,
		&runLog.ErrorMessage, &runLog.ExecutionTimeSeconds,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Нет успешных запусков
		}
		return nil, fmt.Errorf("ошибка при получении информации о последнем успешном запуске ETL: %w", err)
	}

	return &runLog, nil
}

// GetETLRunStats получает статистику о запусках ETL за определенный период
func (r *PostgresETLLogRepository) GetETLRunStats(days int) ([]ETLRunLog, error) {
	query := `
	SELECT
		id, run_id, mode, start_time, COALESCE(end_time, NOW()), status,
		sources_processed, sessions_extracted, sessions_loaded,
		COALESCE(error_message, ''), COALESCE(execution_time_seconds, 0)
	FROM etl_runs
	WHERE start_time >= NOW() - make_interval(days => $1)
	ORDER BY start_time DESC
	`

	rows, err := r.db.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}
	defer rows.Close()

	var logs []ETLRunLog
	for rows.Next() {
		var runLog ETLRunLog
		err := rows.Scan(
			&runLog.ID, &runLog.RunID, &runLog.Mode, &runLog.StartTime, &runLog.EndTime, &runLog.Status,
			&runLog.SourcesProcessed, &runLog.SessionsExtracted, &runLog.SessionsLoaded,
			&runLog.ErrorMessage, &runLog.ExecutionTimeSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске ETL: %w", err)
		}
		logs = append(logs, runLog)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках ETL: %w", err)
	}

	return logs, nil
}

// GetETLStateMonitor получает сводную информацию о состоянии ETL процесса
func (r *PostgresETLLogRepository) GetETLStateMonitor() (*ETLStateMonitor, error) {
	// Получаем последний успешный запуск
	lastSuccessful, err := r.GetLastSuccessfulRun()
	if err != nil {
		return nil, err
	}

	// Получаем последний неудачный запуск
	var lastFailed *ETLRunLog
	query := `
	SELECT
		id, run_id, mode, start_time, end_time, status,
		sources_processed, sessions_extracted, sessions_loaded,
		COALESCE(error_message, ''), COALESCE(execution_time_seconds, 0)
	FROM etl_runs
	WHERE status = 'failed'
	ORDER BY end_time DESC
	LIMIT 1
	`

	var runLog ETLRunLog
	err = r.db.QueryRow(query).Scan(
		&runLog.ID, &runLog.RunID, &runLog.Mode, &runLog.StartTime, &runLog.EndTime, &runLog.Status,
		&runLog.SourcesProcessed, &runLog.SessionsExtracted, &runLog.SessionsLoaded,
		&runLog.ErrorMessage, &runLog.ExecutionTimeSeconds,
	)

	if err == nil {
		lastFailed = &runLog
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("ошибка при получении информации о последнем неудачном запуске ETL: %w", err)
	}

	// Получаем общую статистику запусков
	var totalSuccess, totalFailed, totalLoaded int
	var avgExecutionTime float64

	err = r.db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COALESCE(AVG(execution_time_seconds) FILTER (WHERE status = 'success'), 0),
			COALESCE(SUM(sessions_loaded) FILTER (WHERE status = 'success'), 0)
		FROM etl_runs
	`).Scan(&totalSuccess, &totalFailed, &avgExecutionTime, &totalLoaded)

	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики запусков ETL: %w", err)
	}

	return &ETLStateMonitor{
		LastSuccessfulRun:       lastSuccessful,
		LastFailedRun:           lastFailed,
		TotalSuccessfulRuns:     totalSuccess,
		TotalFailedRuns:         totalFailed,
		AvgExecutionTimeSeconds: avgExecutionTime,
		TotalSessionsLoaded:     totalLoaded,
	}, nil
}
