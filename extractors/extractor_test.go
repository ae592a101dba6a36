package extractors

import (
	"testing"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
)

func TestJoinEventsLeftJoin(t *testing.T) {
	activity := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: activity, SourceID: "project_1"},
		{SessionID: 2, UserID: 7, LastActivityAt: activity, SourceID: "project_1"},
		{SessionID: 3, UserID: 8, LastActivityAt: activity, SourceID: "project_1"},
	}

	counts := []models.EventCount{
		{SessionID: 1, UserID: 7, EventsCount: 12, SourceID: "project_1"},
		// Счетчик с совпадающим session_id, но другим user_id не должен примешиваться
		{SessionID: 2, UserID: 9, EventsCount: 99, SourceID: "project_1"},
	}

	joined := joinEvents(sessions, counts)

	if len(joined) != len(sessions) {
		t.Fatalf("left join изменил количество сессий: %d на входе, %d на выходе", len(sessions), len(joined))
	}

	if joined[0].EventsCount != 12 {
		t.Errorf("сессия 1: events_count = %d, ожидалось 12", joined[0].EventsCount)
	}

	// Сессии без событий получают events_count = 0
	if joined[1].EventsCount != 0 {
		t.Errorf("сессия 2: events_count = %d, ожидался 0", joined[1].EventsCount)
	}
	if joined[2].EventsCount != 0 {
		t.Errorf("сессия 3: events_count = %d, ожидался 0", joined[2].EventsCount)
	}
}

func TestJoinEventsKeepsSourceTag(t *testing.T) {
	activity := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	// Одинаковый session_id в разных источниках — независимые сессии
	sessions := []models.SessionRecord{
		{SessionID: 1, UserID: 7, LastActivityAt: activity, SourceID: "project_a"},
	}
	counts := []models.EventCount{
		{SessionID: 1, UserID: 7, EventsCount: 5, SourceID: "project_a"},
	}

	joined := joinEvents(sessions, counts)
	if joined[0].SourceID != "project_a" {
		t.Errorf("source_id = %q, ожидалось project_a", joined[0].SourceID)
	}
	if joined[0].EventsCount != 5 {
		t.Errorf("events_count = %d, ожидалось 5", joined[0].EventsCount)
	}
}

func TestJoinEventsEmptyInput(t *testing.T) {
	joined := joinEvents(nil, []models.EventCount{{SessionID: 1, UserID: 1, EventsCount: 3}})
	if len(joined) != 0 {
		t.Fatalf("join пустого набора сессий вернул %d записей", len(joined))
	}
}
