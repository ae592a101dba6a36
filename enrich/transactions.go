package enrich

import (
	"time"

	"github.com/LilVoxy/analytics_etl/models"
)

// userDay — ключ агрегации транзакций: пользователь + календарная дата
type userDay struct {
	userID int64
	date   string
}

// daySummary содержит агрегат транзакций пользователя за один день
type daySummary struct {
	// Сумма успешных транзакций за день (до конвертации)
	sum float64

	// Первая успешная транзакция за день (по created_at)
	firstAmount float64
	firstTime   time.Time
}

// DateOf возвращает календарную дату момента времени
func DateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// summarizeTransactions группирует успешные транзакции по (user_id, дата):
// суммирует amount и находит первую транзакцию дня по created_at
func summarizeTransactions(transactions []models.TransactionRecord) map[userDay]*daySummary {
	summaries := make(map[userDay]*daySummary)

	for _, txn := range transactions {
		// В обогащении участвуют только успешные транзакции
		if !txn.Success {
			continue
		}

		key := userDay{userID: txn.UserID, date: dateKey(txn.CreatedAt)}
		summary, exists := summaries[key]
		if !exists {
			summary = &daySummary{
				firstAmount: txn.Amount,
				firstTime:   txn.CreatedAt,
			}
			summaries[key] = summary
		} else if txn.CreatedAt.Before(summary.firstTime) {
			summary.firstAmount = txn.Amount
			summary.firstTime = txn.CreatedAt
		}

		summary.sum += txn.Amount
	}

	return summaries
}

// ratesByDate строит отображение дата -> курс обмена
// Предполагается не более одного применимого курса на дату;
// несколько курсов на одну дату — нарушение качества данных выше по потоку,
// здесь берется первый встреченный
func ratesByDate(rates []models.ExchangeRateRecord) map[string]float64 {
	byDate := make(map[string]float64, len(rates))
	for _, rate := range rates {
		key := dateKey(rate.CurrencyDate)
		if _, exists := byDate[key]; !exists {
			byDate[key] = rate.ExchangeRate
		}
	}
	return byDate
}

// EnrichSessions обогащает сессии данными о транзакциях и курсах обмена.
// Выполняется left join сессий к дневным агрегатам по (user_id, session_date):
// каждой входной сессии соответствует ровно одна выходная запись,
// сессии без транзакций за день получают нулевые суммы и пустое время.
// Отсутствие курса на дату транзакций также дает нулевые суммы —
// null никогда не попадает в конвертированные поля
func EnrichSessions(
	sessions []models.SessionRecord,
	transactions []models.TransactionRecord,
	rates []models.ExchangeRateRecord,
) []models.EnrichedSessionRecord {
	summaries := summarizeTransactions(transactions)
	dayRates := ratesByDate(rates)

	enriched := make([]models.EnrichedSessionRecord, 0, len(sessions))
	for _, session := range sessions {
		sessionDate := DateOf(session.LastActivityAt)

		record := models.EnrichedSessionRecord{
			SessionID:      session.SessionID,
			UserID:         session.UserID,
			LastActivityAt: session.LastActivityAt,
			SourceID:       session.SourceID,
			EventsCount:    session.EventsCount,
			SessionDate:    sessionDate,
		}

		if summary, ok := summaries[userDay{userID: session.UserID, date: dateKey(sessionDate)}]; ok {
			firstTime := summary.firstTime
			record.FirstTransactionTime = &firstTime

			if rate, ok := dayRates[dateKey(summary.firstTime)]; ok {
				record.TransactionsSumConverted = summary.sum * rate
				record.FirstTransactionConverted = summary.firstAmount * rate
			}
		}

		enriched = append(enriched, record)
	}

	return enriched
}
