// Package storage отвечает за промежуточные артефакты между фазами ETL.
// Артефакты — это табличные CSV-файлы (опционально сжатые snappy),
// у каждого артефакта один писатель и один читатель.
package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/golang/snappy"
)

// Имена файлов артефактов
const (
	ExtractedFileName = "extracted_sessions.csv"
	EnrichedFileName  = "enriched_sessions.csv"

	// Суффикс сжатых артефактов
	snappySuffix = ".snappy"
)

// Форматы времени в артефактах
const (
	timestampLayout = time.RFC3339Nano
	dateLayout      = "2006-01-02"
)

// ArtifactStore читает и пишет артефакты одной фазы в заданном каталоге
type ArtifactStore struct {
	dir      string
	compress bool
}

// NewArtifactStore создает новый экземпляр ArtifactStore
func NewArtifactStore(dir string, compress bool) *ArtifactStore {
	return &ArtifactStore{
		dir:      dir,
		compress: compress,
	}
}

// Path возвращает полный путь к файлу артефакта с учетом сжатия
func (s *ArtifactStore) Path(fileName string) string {
	if s.compress {
		fileName += snappySuffix
	}
	return filepath.Join(s.dir, fileName)
}

// WriteSessions сохраняет результат фазы Extract
func (s *ArtifactStore) WriteSessions(sessions []models.SessionRecord) error {
	records := make([][]string, 0, len(sessions)+1)
	records = append(records, []string{
		"source_id", "session_id", "user_id", "last_activity_at", "events_count",
	})

	for _, session := range sessions {
		records = append(records, []string{
			session.SourceID,
			strconv.FormatInt(session.SessionID, 10),
			strconv.FormatInt(session.UserID, 10),
			session.LastActivityAt.Format(timestampLayout),
			strconv.Itoa(session.EventsCount),
		})
	}

	return s.writeFile(ExtractedFileName, records)
}

// ReadSessions читает результат фазы Extract
// Отсутствие артефакта — ошибка: фаза Enrich не может начаться
// без полного результата фазы Extract
func (s *ArtifactStore) ReadSessions() ([]models.SessionRecord, error) {
	records, err := s.readFile(ExtractedFileName)
	if err != nil {
		return nil, err
	}

	var sessions []models.SessionRecord
	for i, record := range records {
		if i == 0 {
			continue // заголовок
		}
		if len(record) != 5 {
			return nil, fmt.Errorf("строка %d артефакта %s содержит %d полей вместо 5", i, ExtractedFileName, len(record))
		}

		session := models.SessionRecord{SourceID: record[0]}

		if session.SessionID, err = strconv.ParseInt(record[1], 10, 64); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный session_id %q: %w", i, record[1], err)
		}
		if session.UserID, err = strconv.ParseInt(record[2], 10, 64); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный user_id %q: %w", i, record[2], err)
		}
		if session.LastActivityAt, err = time.Parse(timestampLayout, record[3]); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный last_activity_at %q: %w", i, record[3], err)
		}
		if session.EventsCount, err = strconv.Atoi(record[4]); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный events_count %q: %w", i, record[4], err)
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}

// WriteEnrichedSessions сохраняет результат фазы Enrich
func (s *ArtifactStore) WriteEnrichedSessions(sessions []models.EnrichedSessionRecord) error {
	records := make([][]string, 0, len(sessions)+1)
	records = append(records, []string{
		"source_id", "session_id", "user_id", "last_activity_at", "events_count",
		"session_date", "transactions_sum_converted",
		"first_successful_transaction_converted", "first_successful_transaction_time",
	})

	for _, session := range sessions {
		firstTransactionTime := ""
		if session.FirstTransactionTime != nil {
			firstTransactionTime = session.FirstTransactionTime.Format(timestampLayout)
		}

		records = append(records, []string{
			session.SourceID,
			strconv.FormatInt(session.SessionID, 10),
			strconv.FormatInt(session.UserID, 10),
			session.LastActivityAt.Format(timestampLayout),
			strconv.Itoa(session.EventsCount),
			session.SessionDate.Format(dateLayout),
			strconv.FormatFloat(session.TransactionsSumConverted, 'f', -1, 64),
			strconv.FormatFloat(session.FirstTransactionConverted, 'f', -1, 64),
			firstTransactionTime,
		})
	}

	return s.writeFile(EnrichedFileName, records)
}

// ReadEnrichedSessions читает результат фазы Enrich
func (s *ArtifactStore) ReadEnrichedSessions() ([]models.EnrichedSessionRecord, error) {
	records, err := s.readFile(EnrichedFileName)
	if err != nil {
		return nil, err
	}

	var sessions []models.EnrichedSessionRecord
	for i, record := range records {
		if i == 0 {
			continue // заголовок
		}
		if len(record) != 9 {
			return nil, fmt.Errorf("строка %d артефакта %s содержит %d полей вместо 9", i, EnrichedFileName, len(record))
		}

		session := models.EnrichedSessionRecord{SourceID: record[0]}

		if session.SessionID, err = strconv.ParseInt(record[1], 10, 64); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный session_id %q: %w", i, record[1], err)
		}
		if session.UserID, err = strconv.ParseInt(record[2], 10, 64); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный user_id %q: %w", i, record[2], err)
		}
		if session.LastActivityAt, err = time.Parse(timestampLayout, record[3]); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный last_activity_at %q: %w", i, record[3], err)
		}
		if session.EventsCount, err = strconv.Atoi(record[4]); err != nil {
			return nil, fmt.Errorf("строка %d: некорректный events_count %q: %w", i, record[4], err)
		}
		if session.SessionDate, err = time.Parse(dateLayout, record[5]); err != nil {
			return nil, fmt.Errorf("строка %d: некорректная session_date %q: %w", i, record[5], err)
		}
		if session.TransactionsSumConverted, err = strconv.ParseFloat(record[6], 64); err != nil {
			return nil, fmt.Errorf("строка %d: некорректная transactions_sum_converted %q: %w", i, record[6], err)
		}
		if session.FirstTransactionConverted, err = strconv.ParseFloat(record[7], 64); err != nil {
			return nil, fmt.Errorf("строка %d: некорректная first_successful_transaction_converted %q: %w", i, record[7], err)
		}

		if record[8] != "" {
			firstTransactionTime, err := time.Parse(timestampLayout, record[8])
			if err != nil {
				return nil, fmt.Errorf("строка %d: некорректное first_successful_transaction_time %q: %w", i, record[8], err)
			}
			session.FirstTransactionTime = &firstTransactionTime
		}

		sessions = append(sessions, session)
	}

	return sessions, nil
}

// writeFile сериализует записи в CSV и атомарно сохраняет файл артефакта
func (s *ArtifactStore) writeFile(fileName string, records [][]string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("не удалось создать каталог артефактов %s: %w", s.dir, err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("ошибка записи CSV: %w", err)
	}

	data := buf.Bytes()
	if s.compress {
		data = snappy.Encode(nil, data)
	}

	// Пишем во временный файл и переименовываем, чтобы читатель
	// никогда не увидел частично записанный артефакт
	path := s.Path(fileName)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи артефакта %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("ошибка переименования артефакта %s: %w", path, err)
	}

	return nil
}

// readFile читает файл артефакта и разбирает его как CSV
func (s *ArtifactStore) readFile(fileName string) ([][]string, error) {
	path := s.Path(fileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("артефакт %s недоступен: %w", path, err)
	}

	if s.compress {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("ошибка распаковки артефакта %s: %w", path, err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора артефакта %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("артефакт %s пуст: отсутствует заголовок", path)
	}

	return records, nil
}
