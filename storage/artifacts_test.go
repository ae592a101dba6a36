package storage

import (
	"testing"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
)

func TestSessionsRoundTrip(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), false)

	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC), SourceID: "project_1", EventsCount: 3},
		{SessionID: 1, UserID: 8, LastActivityAt: time.Date(2024, 1, 6, 11, 0, 0, 0, time.UTC), SourceID: "project_2", EventsCount: 0},
	}

	if err := store.WriteSessions(sessions); err != nil {
		t.Fatalf("ошибка записи артефакта: %v", err)
	}

	restored, err := store.ReadSessions()
	if err != nil {
		t.Fatalf("ошибка чтения артефакта: %v", err)
	}

	if len(restored) != len(sessions) {
		t.Fatalf("прочитано %d сессий, ожидалось %d", len(restored), len(sessions))
	}

	for i, session := range restored {
		expected := sessions[i]
		if session.SourceID != expected.SourceID ||
			session.SessionID != expected.SessionID ||
			session.UserID != expected.UserID ||
			session.EventsCount != expected.EventsCount ||
			!session.LastActivityAt.Equal(expected.LastActivityAt) {
			t.Errorf("сессия %d: %+v, ожидалось %+v", i, session, expected)
		}
	}
}

func TestEnrichedRoundTripWithCompression(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), true)

	firstTime := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	sessions := []models.EnrichedSessionRecord{
		{
			SessionID:                 1,
			UserID:                    7,
			LastActivityAt:            time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC),
			SourceID:                  "project_1",
			EventsCount:               3,
			SessionDate:               time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			TransactionsSumConverted:  11.0,
			FirstTransactionConverted: 11.0,
			FirstTransactionTime:      &firstTime,
		},
		{
			// Сессия без транзакций: нулевые суммы и пустое время
			SessionID:      2,
			UserID:         8,
			LastActivityAt: time.Date(2024, 1, 6, 11, 0, 0, 0, time.UTC),
			SourceID:       "project_2",
			SessionDate:    time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		},
	}

	if err := store.WriteEnrichedSessions(sessions); err != nil {
		t.Fatalf("ошибка записи сжатого артефакта: %v", err)
	}

	restored, err := store.ReadEnrichedSessions()
	if err != nil {
		t.Fatalf("ошибка чтения сжатого артефакта: %v", err)
	}

	if len(restored) != len(sessions) {
		t.Fatalf("прочитано %d записей, ожидалось %d", len(restored), len(sessions))
	}

	if restored[0].FirstTransactionTime == nil || !restored[0].FirstTransactionTime.Equal(firstTime) {
		t.Errorf("first_successful_transaction_time = %v, ожидалось %v", restored[0].FirstTransactionTime, firstTime)
	}
	if restored[0].TransactionsSumConverted != 11.0 {
		t.Errorf("transactions_sum_converted = %v, ожидалось 11.0", restored[0].TransactionsSumConverted)
	}

	if restored[1].FirstTransactionTime != nil {
		t.Errorf("пустое время первой транзакции прочитано как %v", restored[1].FirstTransactionTime)
	}
	if restored[1].TransactionsSumConverted != 0 {
		t.Errorf("transactions_sum_converted = %v, ожидался 0", restored[1].TransactionsSumConverted)
	}
}

func TestReadSessionsMissingArtifact(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), false)

	// Фаза Enrich не может начаться без артефакта фазы Extract
	if _, err := store.ReadSessions(); err == nil {
		t.Fatalf("ожидалась ошибка при отсутствии артефакта")
	}
}

func TestWriteSessionsEmptySet(t *testing.T) {
	store := NewArtifactStore(t.TempDir(), false)

	if err := store.WriteSessions(nil); err != nil {
		t.Fatalf("ошибка записи пустого артефакта: %v", err)
	}

	restored, err := store.ReadSessions()
	if err != nil {
		t.Fatalf("ошибка чтения пустого артефакта: %v", err)
	}
	if len(restored) != 0 {
		t.Fatalf("пустой артефакт вернул %d сессий", len(restored))
	}
}
