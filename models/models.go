package models

import (
	"time"
)

// SourceDescriptor описывает одну исходную базу данных (проект)
type SourceDescriptor struct {
	// Идентификатор источника (например, "project_1")
	SourceID string `json:"source_id"`

	// Строка подключения к базе данных источника
	ConnectionURI string `json:"connection_uri"`
}

// SessionRecord представляет сессию пользователя, извлеченную из источника
// ID сессии уникален только в пределах одного источника,
// глобальным ключом является пара (SourceID, SessionID)
type SessionRecord struct {
	SessionID      int64     `json:"session_id"`
	UserID         int64     `json:"user_id"`
	LastActivityAt time.Time `json:"last_activity_at"`
	SourceID       string    `json:"source_id"`
	EventsCount    int       `json:"events_count"`
}

// EventCount содержит агрегированное количество событий для сессии
type EventCount struct {
	UserID      int64  `json:"user_id"`
	SessionID   int64  `json:"session_id"`
	EventsCount int    `json:"events_count"`
	SourceID    string `json:"source_id"`
}

// TransactionRecord представляет транзакцию из журнала аналитической БД
// В обогащении участвуют только успешные транзакции (Success = true)
type TransactionRecord struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Success   bool      `json:"success"`
}

// ExchangeRateRecord представляет курс обмена валюты на определенную дату
type ExchangeRateRecord struct {
	CurrencyFrom string    `json:"currency_from"`
	CurrencyTo   string    `json:"currency_to"`
	ExchangeRate float64   `json:"exchange_rate"`
	CurrencyDate time.Time `json:"currency_date"`
}

// EnrichedSessionRecord представляет сессию, обогащенную данными о транзакциях
// Каждой входной сессии соответствует ровно одна обогащенная запись
type EnrichedSessionRecord struct {
	SessionID      int64     `json:"session_id"`
	UserID         int64     `json:"user_id"`
	LastActivityAt time.Time `json:"last_activity_at"`
	SourceID       string    `json:"source_id"`
	EventsCount    int       `json:"events_count"`

	// Дата сессии (календарная дата LastActivityAt)
	SessionDate time.Time `json:"session_date"`

	// Сумма успешных транзакций за день, сконвертированная в целевую валюту
	TransactionsSumConverted float64 `json:"transactions_sum_converted"`

	// Сконвертированная сумма первой успешной транзакции за день
	FirstTransactionConverted float64 `json:"first_successful_transaction_converted"`

	// Время первой успешной транзакции за день (nil, если транзакций не было)
	FirstTransactionTime *time.Time `json:"first_successful_transaction_time,omitempty"`
}

// AnalyticsSessionRow представляет строку целевой таблицы analytics_sessions
// GlobalID присваивается на этапе загрузки и строго монотонно возрастает
type AnalyticsSessionRow struct {
	GlobalID int64 `json:"session_id"`
	EnrichedSessionRecord
}

// ExtractedData содержит результат фазы Extract
type ExtractedData struct {
	Sessions []SessionRecord `json:"sessions"`

	// Количество обработанных источников
	SourcesProcessed int `json:"sources_processed"`

	// Время завершения извлечения
	ExtractedAt time.Time `json:"extracted_at"`
}
