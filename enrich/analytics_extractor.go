package enrich

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/utils"
)

// AnalyticsExtractor извлекает транзакции и курсы обмена из аналитической БД
type AnalyticsExtractor struct {
	db     *sql.DB
	logger *utils.ETLLogger
}

// NewAnalyticsExtractor создает новый экземпляр AnalyticsExtractor
func NewAnalyticsExtractor(db *sql.DB, logger *utils.ETLLogger) *AnalyticsExtractor {
	return &AnalyticsExtractor{
		db:     db,
		logger: logger,
	}
}

// ExtractTransactions извлекает успешные транзакции из журнала
func (e *AnalyticsExtractor) ExtractTransactions(ctx context.Context) ([]models.TransactionRecord, error) {
	e.logger.Debug("Извлечение успешных транзакций из аналитической БД")

	query := `
		SELECT user_id, created_at, amount, currency, success
		FROM transactions
		WHERE success = true
	`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		e.logger.Error("Ошибка при извлечении транзакций: %v", err)
		return nil, fmt.Errorf("ошибка запроса транзакций: %w", err)
	}
	defer rows.Close()

	var transactions []models.TransactionRecord
	for rows.Next() {
		var txn models.TransactionRecord
		if err := rows.Scan(&txn.UserID, &txn.CreatedAt, &txn.Amount, &txn.Currency, &txn.Success); err != nil {
			e.logger.Error("Ошибка при обработке данных транзакции: %v", err)
			return nil, fmt.Errorf("ошибка обработки данных транзакции: %w", err)
		}
		transactions = append(transactions, txn)
	}

	// Проверяем ошибки после итерации по результатам
	if err = rows.Err(); err != nil {
		e.logger.Error("Ошибка после итерации по транзакциям: %v", err)
		return nil, fmt.Errorf("ошибка после итерации по транзакциям: %w", err)
	}

	e.logger.Debug("Извлечено %d успешных транзакций", len(transactions))
	return transactions, nil
}

// ExtractExchangeRates извлекает все курсы обмена
func (e *AnalyticsExtractor) ExtractExchangeRates(ctx context.Context) ([]models.ExchangeRateRecord, error) {
	e.logger.Debug("Извлечение курсов обмена из аналитической БД")

	query := `
		SELECT currency_from, currency_to, exchange_rate, currency_date
		FROM exchange_rates
	`

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		e.logger.Error("Ошибка при извлечении курсов обмена: %v", err)
		return nil, fmt.Errorf("ошибка запроса курсов обмена: %w", err)
	}
	defer rows.Close()

	var rates []models.ExchangeRateRecord
	for rows.Next() {
		var rate models.ExchangeRateRecord
		if err := rows.Scan(&rate.CurrencyFrom, &rate.CurrencyTo, &rate.ExchangeRate, &rate.CurrencyDate); err != nil {
			e.logger.Error("Ошибка при обработке курса обмена: %v", err)
			return nil, fmt.Errorf("ошибка обработки курса обмена: %w", err)
		}
		rates = append(rates, rate)
	}

	// Проверяем ошибки после итерации по результатам
	if err = rows.Err(); err != nil {
		e.logger.Error("Ошибка после итерации по курсам обмена: %v", err)
		return nil, fmt.Errorf("ошибка после итерации по курсам обмена: %w", err)
	}

	e.logger.Debug("Извлечено %d курсов обмена", len(rates))
	return rates, nil
}
