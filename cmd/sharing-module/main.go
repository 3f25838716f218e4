// main.go — точка входа Sharing Module.
// Собирает все компоненты: config, logger, PostgreSQL, клиенты
// Admin Module и Storage Element, сервисный слой, JWT middleware,
// мониторинг зависимостей и HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/docshare/sharing-module/internal/adminclient"
	"github.com/bigkaa/docshare/sharing-module/internal/api/handlers"
	"github.com/bigkaa/docshare/sharing-module/internal/api/middleware"
	"github.com/bigkaa/docshare/sharing-module/internal/api/openapi"
	"github.com/bigkaa/docshare/sharing-module/internal/config"
	"github.com/bigkaa/docshare/sharing-module/internal/database"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
	"github.com/bigkaa/docshare/sharing-module/internal/repository"
	"github.com/bigkaa/docshare/sharing-module/internal/server"
	"github.com/bigkaa/docshare/sharing-module/internal/service"
	"github.com/bigkaa/docshare/sharing-module/internal/storeclient"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Sharing Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Миграции схемы БД
	if err := database.Migrate(cfg, logger); err != nil {
		log.Fatalf("Ошибка миграции БД: %v", err)
	}

	// 4. Подключение к PostgreSQL
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Ошибка подключения к PostgreSQL: %v", err)
	}
	defer pool.Close()

	// *sql.DB поверх pgxpool — для dephealth pgcheck
	sqlDB := stdlib.OpenDBFromPool(pool)

	// 5. Клиент Admin Module (каталог классов + SA-токены IdP)
	adminClient, err := adminclient.New(
		cfg.AdminURL, cfg.IDPTokenURL, cfg.CACertPath, cfg.AdminTimeout,
		cfg.IDPClientID, cfg.IDPClientSecret, logger)
	if err != nil {
		log.Fatalf("Ошибка создания Admin Module клиента: %v", err)
	}

	// 6. Клиент Storage Element (файлы подборок); авторизуется
	// тем же SA-токеном, что и Admin Module клиент
	storeClient, err := storeclient.New(
		cfg.StoreURL, cfg.CACertPath, cfg.StoreTimeout,
		adminClient.GetToken, logger)
	if err != nil {
		log.Fatalf("Ошибка создания Storage Element клиента: %v", err)
	}

	// 7. Репозиторий подборок
	batchRepo := repository.NewBatchRepository(pool)

	// 8. Каталог классов документов: первичная загрузка + фоновое обновление.
	// Неудачная первичная загрузка не фатальна — Admin Module может
	// подниматься параллельно, снимок подтянет фоновая горутина.
	catalog := service.NewCatalogService(adminClient, cfg.CatalogRefreshInterval, logger)
	if err := catalog.Refresh(ctx); err != nil {
		logger.Warn("первичная загрузка каталога не удалась, продолжаем с пустым снимком",
			slog.String("error", err.Error()),
		)
	}
	go catalog.Run(ctx)

	// 9. Сервисный слой
	submission := service.NewSubmissionService(
		catalog, storeClient, batchRepo, cfg.SessionMax, cfg.SessionTTL, logger)
	formatter := schema.NewFormatter(cfg.Locale, cfg.DateLayout, cfg.DateTimeLayout)
	browse := service.NewBrowseService(
		catalog, batchRepo, formatter, cfg.BrowseScanLimit, logger)

	// 10. Мониторинг зависимостей (topologymetrics)
	dephealthSvc, err := service.NewDephealthService(
		"sharing-module", cfg.DephealthGroup, sqlDB, cfg.DatabaseURL(),
		cfg.AdminURL, cfg.StoreURL, cfg.DephealthCheckInterval, logger)
	if err != nil {
		log.Fatalf("Ошибка создания мониторинга зависимостей: %v", err)
	}
	if err := dephealthSvc.Start(ctx); err != nil {
		log.Fatalf("Ошибка запуска мониторинга зависимостей: %v", err)
	}
	defer dephealthSvc.Stop()

	// 11. JWT middleware (JWKS из IdP)
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL, cfg.CACertPath, cfg.JWTIssuer,
		cfg.RoleSharerGroups, cfg.RoleViewerGroups,
		cfg.JWKSClientTimeout, cfg.JWKSRefreshInterval, cfg.JWTLeeway, logger)
	if err != nil {
		log.Fatalf("Ошибка создания JWT middleware: %v", err)
	}
	defer jwtAuth.Close()

	// 12. Readiness checkers
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker, err := middleware.NewIdPReadinessChecker(
		cfg.JWTJWKSURL, cfg.CACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		log.Fatalf("Ошибка создания IdP checker: %v", err)
	}
	// Снимок каталога старше трёх интервалов обновления — degraded
	catalogChecker := handlers.NewCatalogChecker(catalog, 3*cfg.CatalogRefreshInterval)

	// 13. Обработчики API
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker, catalogChecker)
	apiHandler := handlers.NewAPIHandler(
		healthHandler, catalog, submission, browse, storeClient, logger)

	// 14. OpenAPI контракт: валидация при старте, отдача как /openapi.json
	doc, err := openapi.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки OpenAPI контракта: %v", err)
	}
	specJSON, err := openapi.JSON(doc)
	if err != nil {
		log.Fatalf("Ошибка сериализации OpenAPI контракта: %v", err)
	}
	apiHandler.SetOpenAPISpec(specJSON)

	// 15. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler, jwtAuth.Middleware())
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("Sharing Module остановлен")
}
