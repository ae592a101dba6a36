package enrich

import (
	"math"
	"testing"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEnrichSessionsKeepsCardinality(t *testing.T) {
	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), SourceID: "project_1", EventsCount: 3},
		{SessionID: 1, UserID: 8, LastActivityAt: time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC), SourceID: "project_2"},
		{SessionID: 2, UserID: 7, LastActivityAt: time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC), SourceID: "project_1"},
	}

	transactions := []models.TransactionRecord{
		{UserID: 7, CreatedAt: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), Amount: 10, Currency: "EUR", Success: true},
	}

	rates := []models.ExchangeRateRecord{
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 1.10, CurrencyDate: date(2024, 1, 5)},
	}

	enriched := EnrichSessions(sessions, transactions, rates)
	if len(enriched) != len(sessions) {
		t.Fatalf("нарушен инвариант: %d сессий на входе, %d на выходе", len(sessions), len(enriched))
	}

	// Повторный вызов с пустыми транзакциями также не теряет строки
	enriched = EnrichSessions(sessions, nil, nil)
	if len(enriched) != len(sessions) {
		t.Fatalf("нарушен инвариант без транзакций: %d на входе, %d на выходе", len(sessions), len(enriched))
	}
}

func TestEnrichSessionsEndToEndExample(t *testing.T) {
	// Источник A: одна сессия пользователя 7 с тремя событиями,
	// источник B пуст; одна успешная транзакция EUR 10.00,
	// курс EUR->USD 1.10 на ту же дату
	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC), SourceID: "project_a", EventsCount: 3},
	}

	transactionTime := time.Date(2024, 1, 5, 14, 15, 0, 0, time.UTC)
	transactions := []models.TransactionRecord{
		{UserID: 7, CreatedAt: transactionTime, Amount: 10.00, Currency: "EUR", Success: true},
	}

	rates := []models.ExchangeRateRecord{
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 1.10, CurrencyDate: date(2024, 1, 5)},
	}

	enriched := EnrichSessions(sessions, transactions, rates)
	if len(enriched) != 1 {
		t.Fatalf("ожидалась 1 обогащенная запись, получено %d", len(enriched))
	}

	record := enriched[0]
	if !almostEqual(record.TransactionsSumConverted, 11.00) {
		t.Errorf("transactions_sum_converted = %v, ожидалось 11.00", record.TransactionsSumConverted)
	}
	if !almostEqual(record.FirstTransactionConverted, 11.00) {
		t.Errorf("first_successful_transaction_converted = %v, ожидалось 11.00", record.FirstTransactionConverted)
	}
	if record.EventsCount != 3 {
		t.Errorf("events_count = %d, ожидалось 3", record.EventsCount)
	}
	if record.FirstTransactionTime == nil || !record.FirstTransactionTime.Equal(transactionTime) {
		t.Errorf("first_successful_transaction_time = %v, ожидалось %v", record.FirstTransactionTime, transactionTime)
	}
	if !record.SessionDate.Equal(date(2024, 1, 5)) {
		t.Errorf("session_date = %v, ожидалось 2024-01-05", record.SessionDate)
	}
}

func TestEnrichSessionsNoMatchingTransactionDay(t *testing.T) {
	sessions := []models.SessionRecord{
		{SessionID: 5, UserID: 42, LastActivityAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), SourceID: "project_1"},
	}

	// Транзакции есть, но за другой день и у другого пользователя
	transactions := []models.TransactionRecord{
		{UserID: 42, CreatedAt: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), Amount: 50, Currency: "EUR", Success: true},
		{UserID: 99, CreatedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), Amount: 50, Currency: "EUR", Success: true},
	}

	rates := []models.ExchangeRateRecord{
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 1.0, CurrencyDate: date(2024, 3, 1)},
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 1.0, CurrencyDate: date(2024, 3, 2)},
	}

	enriched := EnrichSessions(sessions, transactions, rates)
	record := enriched[0]

	if record.TransactionsSumConverted != 0 {
		t.Errorf("transactions_sum_converted = %v, ожидался 0", record.TransactionsSumConverted)
	}
	if record.FirstTransactionConverted != 0 {
		t.Errorf("first_successful_transaction_converted = %v, ожидался 0", record.FirstTransactionConverted)
	}
	if record.FirstTransactionTime != nil {
		t.Errorf("first_successful_transaction_time = %v, ожидался nil", record.FirstTransactionTime)
	}
}

func TestEnrichSessionsSumIsOrderIndependent(t *testing.T) {
	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), SourceID: "project_1"},
	}

	transactions := []models.TransactionRecord{
		{UserID: 7, CreatedAt: time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC), Amount: 3, Currency: "EUR", Success: true},
		{UserID: 7, CreatedAt: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), Amount: 5, Currency: "EUR", Success: true},
		{UserID: 7, CreatedAt: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), Amount: 2, Currency: "EUR", Success: true},
		// Неуспешная транзакция не участвует в агрегации
		{UserID: 7, CreatedAt: time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC), Amount: 100, Currency: "EUR", Success: false},
	}

	rates := []models.ExchangeRateRecord{
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 2.0, CurrencyDate: date(2024, 1, 5)},
	}

	// Прогоняем транзакции в двух разных порядках
	reversed := make([]models.TransactionRecord, len(transactions))
	for i, txn := range transactions {
		reversed[len(transactions)-1-i] = txn
	}

	for _, input := range [][]models.TransactionRecord{transactions, reversed} {
		enriched := EnrichSessions(sessions, input, rates)
		record := enriched[0]

		if !almostEqual(record.TransactionsSumConverted, 20.0) {
			t.Errorf("transactions_sum_converted = %v, ожидалось 20.0 (сумма 10 * курс 2.0)", record.TransactionsSumConverted)
		}

		// Первая успешная транзакция дня — 5 EUR в 09:00
		if !almostEqual(record.FirstTransactionConverted, 10.0) {
			t.Errorf("first_successful_transaction_converted = %v, ожидалось 10.0", record.FirstTransactionConverted)
		}
		expectedFirst := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
		if record.FirstTransactionTime == nil || !record.FirstTransactionTime.Equal(expectedFirst) {
			t.Errorf("first_successful_transaction_time = %v, ожидалось %v", record.FirstTransactionTime, expectedFirst)
		}
	}
}

func TestEnrichSessionsMissingRateCoercesToZero(t *testing.T) {
	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), SourceID: "project_1"},
	}

	transactionTime := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	transactions := []models.TransactionRecord{
		{UserID: 7, CreatedAt: transactionTime, Amount: 10, Currency: "EUR", Success: true},
	}

	// Курс на дату транзакции отсутствует
	rates := []models.ExchangeRateRecord{
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 1.10, CurrencyDate: date(2024, 1, 6)},
	}

	enriched := EnrichSessions(sessions, transactions, rates)
	record := enriched[0]

	// Отсутствующий курс дает 0, а не null в конвертированных полях
	if record.TransactionsSumConverted != 0 {
		t.Errorf("transactions_sum_converted = %v, ожидался 0 при отсутствии курса", record.TransactionsSumConverted)
	}
	if record.FirstTransactionConverted != 0 {
		t.Errorf("first_successful_transaction_converted = %v, ожидался 0 при отсутствии курса", record.FirstTransactionConverted)
	}

	// Время первой транзакции при этом известно
	if record.FirstTransactionTime == nil || !record.FirstTransactionTime.Equal(transactionTime) {
		t.Errorf("first_successful_transaction_time = %v, ожидалось %v", record.FirstTransactionTime, transactionTime)
	}
}

func TestEnrichSessionsGroupsPerUserAndDay(t *testing.T) {
	// Две сессии разных пользователей в один день: каждый получает
	// только собственный дневной агрегат
	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), SourceID: "project_1"},
		{SessionID: 2, UserID: 8, LastActivityAt: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), SourceID: "project_1"},
	}

	transactions := []models.TransactionRecord{
		{UserID: 7, CreatedAt: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), Amount: 10, Currency: "EUR", Success: true},
		{UserID: 8, CreatedAt: time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC), Amount: 4, Currency: "EUR", Success: true},
	}

	rates := []models.ExchangeRateRecord{
		{CurrencyFrom: "EUR", CurrencyTo: "USD", ExchangeRate: 1.0, CurrencyDate: date(2024, 1, 5)},
	}

	enriched := EnrichSessions(sessions, transactions, rates)

	if !almostEqual(enriched[0].TransactionsSumConverted, 10.0) {
		t.Errorf("пользователь 7: transactions_sum_converted = %v, ожидалось 10.0", enriched[0].TransactionsSumConverted)
	}
	if !almostEqual(enriched[1].TransactionsSumConverted, 4.0) {
		t.Errorf("пользователь 8: transactions_sum_converted = %v, ожидалось 4.0", enriched[1].TransactionsSumConverted)
	}
}
