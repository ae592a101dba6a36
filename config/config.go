package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LilVoxy/analytics_etl/models"
	"github.com/joho/godotenv"
)

// ETLConfig содержит конфигурацию для ETL-процесса
// Заполняется один раз при старте процесса и передается компонентам явно
type ETLConfig struct {
	// Список исходных баз данных (проектов)
	Sources []models.SourceDescriptor `json:"sources"`

	// Строка подключения к аналитической БД
	AnalyticsURI string `json:"analytics_uri"`

	// Каталог для артефакта фазы Extract
	ExtractedDataPath string `json:"extracted_data_path"`

	// Каталог для артефакта фазы Enrich
	EnrichedDataPath string `json:"enriched_data_path"`

	// Интервал запуска ETL в режиме scheduled
	RunInterval time.Duration `json:"run_interval"`

	// Таймаут одного запроса к базе данных
	QueryTimeout time.Duration `json:"query_timeout"`

	// Сжатие промежуточных артефактов (snappy)
	CompressArtifacts bool `json:"compress_artifacts"`

	// Адрес HTTP-сервера статуса (режим serve)
	HTTPAddr string `json:"http_addr"`

	// Включение/отключение подробного логирования
	EnableDetailedLogging bool `json:"enable_detailed_logging"`
}

// Значения по умолчанию для необязательных параметров
const (
	DefaultRunInterval  = 10 * time.Minute
	DefaultQueryTimeout = 30 * time.Second
	DefaultHTTPAddr     = ":8081"
)

// Load загружает конфигурацию из переменных окружения
// Отсутствие обязательной переменной — ошибка конфигурации,
// процесс завершается до любых обращений к базам данных
func Load() (*ETLConfig, error) {
	// Опционально подгружаем .env файл (как dotenv в оригинальном пайплайне)
	if dotenvPath := os.Getenv("DOTENV_PATH"); dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil {
			return nil, fmt.Errorf("не удалось загрузить .env файл %s: %w", dotenvPath, err)
		}
	}

	cfg := &ETLConfig{
		RunInterval:           DefaultRunInterval,
		QueryTimeout:          DefaultQueryTimeout,
		HTTPAddr:              DefaultHTTPAddr,
		EnableDetailedLogging: true,
	}

	sources, err := loadSources()
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	cfg.AnalyticsURI = os.Getenv("ANALYTICS_DB_URL")
	if cfg.AnalyticsURI == "" {
		return nil, fmt.Errorf("не задана обязательная переменная ANALYTICS_DB_URL")
	}

	cfg.ExtractedDataPath = os.Getenv("EXTRACTED_DATA_PATH")
	if cfg.ExtractedDataPath == "" {
		return nil, fmt.Errorf("не задана обязательная переменная EXTRACTED_DATA_PATH")
	}

	cfg.EnrichedDataPath = os.Getenv("ENRICHED_DATA_PATH")
	if cfg.EnrichedDataPath == "" {
		return nil, fmt.Errorf("не задана обязательная переменная ENRICHED_DATA_PATH")
	}

	if v := os.Getenv("ETL_RUN_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("неверное значение ETL_RUN_INTERVAL %q: %w", v, err)
		}
		cfg.RunInterval = interval
	}

	if v := os.Getenv("ETL_QUERY_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("неверное значение ETL_QUERY_TIMEOUT %q: %w", v, err)
		}
		cfg.QueryTimeout = timeout
	}

	if v := os.Getenv("ETL_COMPRESS_ARTIFACTS"); v != "" {
		compress, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("неверное значение ETL_COMPRESS_ARTIFACTS %q: %w", v, err)
		}
		cfg.CompressArtifacts = compress
	}

	if v := os.Getenv("ETL_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}

	if v := os.Getenv("ETL_DETAILED_LOGGING"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("неверное значение ETL_DETAILED_LOGGING %q: %w", v, err)
		}
		cfg.EnableDetailedLogging = verbose
	}

	return cfg, nil
}

// loadSources формирует явный список источников из переменных окружения
// PROJECTS содержит идентификаторы через запятую, для каждого должна быть
// задана переменная <ID>_DB_URL; некорректные записи отклоняются сразу,
// а не пропускаются молча
func loadSources() ([]models.SourceDescriptor, error) {
	projectsRaw := os.Getenv("PROJECTS")
	if projectsRaw == "" {
		return nil, fmt.Errorf("не задана обязательная переменная PROJECTS")
	}

	var sources []models.SourceDescriptor
	for _, name := range strings.Split(projectsRaw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		envKey := strings.ToUpper(name) + "_DB_URL"
		uri := os.Getenv(envKey)
		if uri == "" {
			return nil, fmt.Errorf("для источника %q не задана переменная %s", name, envKey)
		}

		if _, err := DriverForURI(uri); err != nil {
			return nil, fmt.Errorf("источник %q: %w", name, err)
		}

		sources = append(sources, models.SourceDescriptor{
			SourceID:      name,
			ConnectionURI: uri,
		})
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("переменная PROJECTS не содержит ни одного источника")
	}

	return sources, nil
}

// DriverForURI определяет драйвер database/sql по схеме строки подключения
func DriverForURI(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("некорректная строка подключения: %w", err)
	}

	switch parsed.Scheme {
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("неподдерживаемая схема подключения %q", parsed.Scheme)
	}
}
