package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LilVoxy/analytics_etl/config"
	"github.com/LilVoxy/analytics_etl/enrich"
	"github.com/LilVoxy/analytics_etl/extractors"
	"github.com/LilVoxy/analytics_etl/load"
	"github.com/LilVoxy/analytics_etl/models"
	"github.com/LilVoxy/analytics_etl/utils"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

// ETLRunner связывает фазы пайплайна, журнал запусков и подключения к БД
type ETLRunner struct {
	cfg         *config.ETLConfig
	connections *config.DBConnections
	logger      *utils.ETLLogger
	extractor   *extractors.Extractor
	enricher    *enrich.Enricher
	loadManager *load.LoadManager
	etlLogRepo  models.ETLLogRepository
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner() (*ETLRunner, error) {
	// Загружаем конфигурацию до любых обращений к базам данных
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("ошибка конфигурации: %w", err)
	}

	// Инициализируем логгер
	logger := utils.NewETLLogger(cfg.EnableDetailedLogging)
	logger.Info("Инициализация ETL Runner (%d источников)", len(cfg.Sources))

	// Подключаемся к базам данных
	connections, err := config.ConnectDatabases(cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базам данных: %w", err)
	}

	// Инициализируем репозиторий журнала запусков ETL
	etlLogRepo := models.NewPostgresETLLogRepository(connections.AnalyticsDB)

	// Создаем таблицу журнала, если она еще не существует
	if err := etlLogRepo.CreateETLLogTable(); err != nil {
		config.CloseDatabases(connections)
		return nil, fmt.Errorf("ошибка при создании таблицы журнала ETL: %w", err)
	}

	return &ETLRunner{
		cfg:         cfg,
		connections: connections,
		logger:      logger,
		extractor:   extractors.NewExtractor(cfg, connections, logger),
		enricher:    enrich.NewEnricher(cfg, connections.AnalyticsDB, logger),
		loadManager: load.NewLoadManager(cfg, connections.AnalyticsDB, logger),
		etlLogRepo:  etlLogRepo,
	}, nil
}

// Close закрывает соединения с базами данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	config.CloseDatabases(r.connections)
}

// ExecuteETL выполняет полный ETL процесс: Extract -> Enrich -> Load
// Фазы разделены жесткими барьерами: каждая следующая фаза видит
// полный результат предыдущей через артефакт на диске
func (r *ETLRunner) ExecuteETL(ctx context.Context) error {
	r.logger.Info("Запуск ETL процесса")
	startTime := time.Now()

	runID := uuid.NewString()
	logID, err := r.etlLogRepo.CreateLogEntry(runID, "once", startTime)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		return fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}

	// 1. Фаза извлечения данных (Extract)
	extractedData, err := r.extractor.Extract(ctx)
	if err != nil {
		errMsg := fmt.Sprintf("Ошибка в фазе Extract: %v", err)
		r.logger.Error(errMsg)
		r.recordFailure(logID, errMsg)
		return fmt.Errorf("ошибка в фазе Extract: %w", err)
	}

	// 2. Фаза обогащения данных (Enrich)
	if _, err := r.enricher.Enrich(ctx); err != nil {
		errMsg := fmt.Sprintf("Ошибка в фазе Enrich: %v", err)
		r.logger.Error(errMsg)
		r.recordFailure(logID, errMsg)
		return fmt.Errorf("ошибка в фазе Enrich: %w", err)
	}

	// 3. Фаза загрузки данных (Load)
	rowsWritten, err := r.loadManager.Load(ctx)
	if err != nil {
		errMsg := fmt.Sprintf("Ошибка в фазе Load: %v", err)
		r.logger.Error(errMsg)
		r.recordFailure(logID, errMsg)
		return fmt.Errorf("ошибка в фазе Load: %w", err)
	}

	// Обновляем запись в журнале с информацией об успешном выполнении
	r.recordSuccess(logID, extractedData.SourcesProcessed, len(extractedData.Sessions), rowsWritten)

	r.logger.Info("ETL процесс успешно завершен. Длительность: %v", time.Since(startTime))
	return nil
}

// ExecuteStage выполняет одну фазу пайплайна с записью в журнал
// Используется режимами extract, enrich и load, каждый из которых
// может быть запущен независимо (барьеры между фазами — артефакты)
func (r *ETLRunner) ExecuteStage(ctx context.Context, mode string) error {
	startTime := time.Now()
	runID := uuid.NewString()

	logID, err := r.etlLogRepo.CreateLogEntry(runID, mode, startTime)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале ETL: %v", err)
		return fmt.Errorf("ошибка при создании записи в журнале ETL: %w", err)
	}

	var sourcesProcessed, sessionsExtracted, sessionsLoaded int

	switch mode {
	case "extract":
		extractedData, err := r.extractor.Extract(ctx)
		if err != nil {
			r.recordFailure(logID, err.Error())
			return fmt.Errorf("ошибка в фазе Extract: %w", err)
		}
		sourcesProcessed = extractedData.SourcesProcessed
		sessionsExtracted = len(extractedData.Sessions)

	case "enrich":
		if _, err := r.enricher.Enrich(ctx); err != nil {
			r.recordFailure(logID, err.Error())
			return fmt.Errorf("ошибка в фазе Enrich: %w", err)
		}

	case "load":
		rowsWritten, err := r.loadManager.Load(ctx)
		if err != nil {
			r.recordFailure(logID, err.Error())
			return fmt.Errorf("ошибка в фазе Load: %w", err)
		}
		sessionsLoaded = rowsWritten

	default:
		errMsg := fmt.Sprintf("неизвестная фаза %q", mode)
		r.recordFailure(logID, errMsg)
		return fmt.Errorf("%s", errMsg)
	}

	r.recordSuccess(logID, sourcesProcessed, sessionsExtracted, sessionsLoaded)
	return nil
}

// recordSuccess обновляет запись в журнале ETL при успешном завершении
func (r *ETLRunner) recordSuccess(logID, sourcesProcessed, sessionsExtracted, sessionsLoaded int) {
	if err := r.etlLogRepo.UpdateLogEntrySuccess(
		logID,
		time.Now(),
		sourcesProcessed,
		sessionsExtracted,
		sessionsLoaded); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

// recordFailure обновляет запись в журнале ETL при ошибке
func (r *ETLRunner) recordFailure(logID int, errorMessage string) {
	if err := r.etlLogRepo.UpdateLogEntryFailure(logID, time.Now(), errorMessage); err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале ETL: %v", err)
	}
}

// StartScheduler запускает планировщик для регулярного выполнения ETL
func (r *ETLRunner) StartScheduler(ctx context.Context) {
	scheduler := gocron.NewScheduler(time.UTC)

	r.logger.Info("Запуск планировщика ETL с интервалом %v", r.cfg.RunInterval)

	_, err := scheduler.Every(r.cfg.RunInterval).Do(func() {
		r.logger.Info("Запланированный запуск ETL процесса")
		if err := r.ExecuteETL(ctx); err != nil {
			r.logger.Error("Ошибка при выполнении запланированного ETL: %v", err)
		}
	})

	if err != nil {
		r.logger.Error("Ошибка при настройке планировщика: %v", err)
		return
	}

	// Запускаем планировщик
	scheduler.StartAsync()

	// Ожидаем сигнал остановки из контекста
	<-ctx.Done()

	// Останавливаем планировщик
	scheduler.Stop()
	r.logger.Info("Планировщик ETL остановлен")
}

// CheckConnections проверяет доступность всех настроенных баз данных
func (r *ETLRunner) CheckConnections(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.cfg.QueryTimeout)
	defer cancel()

	if err := r.connections.AnalyticsDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("аналитическая база данных недоступна: %w", err)
	}
	r.logger.Info("Аналитическая база данных доступна")

	for _, source := range r.cfg.Sources {
		db, err := r.connections.SourceFor(source)
		if err != nil {
			return err
		}
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("источник %s недоступен: %w", source.SourceID, err)
		}
		r.logger.Info("Источник %s доступен", source.SourceID)
	}

	return nil
}

// InitSchema создает целевые таблицы аналитической БД
func (r *ETLRunner) InitSchema() error {
	if err := load.CreateAnalyticsSessionsTable(r.connections.AnalyticsDB); err != nil {
		return err
	}
	r.logger.Info("Таблица analytics_sessions готова")

	if err := r.etlLogRepo.CreateETLLogTable(); err != nil {
		return err
	}
	r.logger.Info("Таблица etl_runs готова")

	return nil
}

// signalContext возвращает контекст, отменяемый по SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		log.Println("Получен сигнал завершения. Останавливаем ETL Runner...")
		cancel()
	}()

	return ctx, cancel
}

func main() {
	// Параметры командной строки
	modePtr := flag.String("mode", "once", "Режим работы: once, scheduled, extract, enrich, load, serve, init или check")
	flag.Parse()

	log.Println("Запуск ETL Runner в режиме:", *modePtr)

	runner, err := NewETLRunner()
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	ctx, cancel := signalContext()
	defer cancel()

	switch *modePtr {
	case "once":
		if err := runner.ExecuteETL(ctx); err != nil {
			log.Fatalf("Ошибка при выполнении ETL: %v", err)
		}
	case "scheduled":
		runner.StartScheduler(ctx)
	case "extract", "enrich", "load":
		if err := runner.ExecuteStage(ctx, *modePtr); err != nil {
			log.Fatalf("Ошибка при выполнении фазы %s: %v", *modePtr, err)
		}
	case "serve":
		if err := runner.ServeStatus(ctx); err != nil {
			log.Fatalf("Ошибка HTTP-сервера статуса: %v", err)
		}
	case "init":
		if err := runner.InitSchema(); err != nil {
			log.Fatalf("Ошибка при инициализации схемы: %v", err)
		}
	case "check":
		if err := runner.CheckConnections(ctx); err != nil {
			log.Fatalf("Ошибка проверки подключений: %v", err)
		}
	default:
		log.Println("Неизвестный режим работы:", *modePtr)
		log.Println("Доступные режимы: once, scheduled, extract, enrich, load, serve, init, check")
		os.Exit(1)
	}

	log.Println("ETL Runner завершил работу")
}
