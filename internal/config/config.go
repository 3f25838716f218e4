// Пакет config — загрузка и валидация конфигурации Sharing Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Sharing Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8010-8019)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Admin Module (владелец классов документов) ---

	// Базовый URL Admin Module
	AdminURL string
	// Таймаут HTTP-запросов к Admin Module
	AdminTimeout time.Duration

	// --- Storage Element (хранилище файлов) ---

	// Базовый URL Storage Element
	StoreURL string
	// Таймаут загрузки файлов
	StoreTimeout time.Duration

	// --- IdP (client_credentials для межсервисных запросов) ---

	// URL token endpoint IdP
	IDPTokenURL string
	// Client ID сервисного аккаунта Sharing Module
	IDPClientID string
	// Client Secret сервисного аккаунта
	IDPClientSecret string

	// --- JWT (валидация входящих запросов) ---

	// URL JWKS endpoint IdP
	JWTJWKSURL string
	// Ожидаемый issuer JWT (пустой — не проверяется)
	JWTIssuer string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration

	// --- Маппинг групп → ролей ---

	// Группы IdP, дающие роль sharer (через запятую)
	RoleSharerGroups []string
	// Группы IdP, дающие роль viewer (через запятую)
	RoleViewerGroups []string

	// --- Каталог классов документов ---

	// Интервал фонового обновления каталога
	CatalogRefreshInterval time.Duration

	// --- Сессии редактирования ---

	// TTL сессии редактирования
	SessionTTL time.Duration
	// Максимальное количество одновременных сессий
	SessionMax int

	// --- Просмотр подборок ---

	// Максимум записей, загружаемых из БД для client-side фильтрации
	BrowseScanLimit int

	// --- Локаль отображения ---

	// Локаль форматирования чисел и дат (BCP 47)
	Locale string
	// Layout отображения дат (Go time layout)
	DateLayout string
	// Layout отображения даты и времени
	DateTimeLayout string

	// --- Мониторинг зависимостей ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- TLS ---

	// Путь к CA-сертификату для исходящих TLS-соединений (опционально)
	CACertPath string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SM_PORT — порт HTTP-сервера (по умолчанию 8010)
	cfg.Port, err = getEnvInt("SM_PORT", 8010)
	if err != nil {
		return nil, fmt.Errorf("SM_PORT: %w", err)
	}
	if cfg.Port < 8010 || cfg.Port > 8019 {
		return nil, fmt.Errorf("SM_PORT: значение %d вне допустимого диапазона 8010-8019", cfg.Port)
	}

	// SM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SM_LOG_LEVEL: %w", err)
	}

	// SM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// SM_HTTP_READ_TIMEOUT — таймаут чтения запроса (по умолчанию 30s)
	cfg.HTTPReadTimeout, err = getEnvDuration("SM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_READ_TIMEOUT: %w", err)
	}

	// SM_HTTP_WRITE_TIMEOUT — таймаут записи ответа; загрузка и скачивание
	// файлов идут через этот сервер, поэтому дефолт щедрый (300s)
	cfg.HTTPWriteTimeout, err = getEnvDuration("SM_HTTP_WRITE_TIMEOUT", 300*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	// SM_HTTP_IDLE_TIMEOUT — таймаут бездействия соединения (по умолчанию 120s)
	cfg.HTTPIdleTimeout, err = getEnvDuration("SM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// SM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SM_DB_PORT: %w", err)
	}

	// SM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SM_DB_USER")
	if err != nil {
		return nil, err
	}

	// SM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Admin Module ---

	// SM_ADMIN_URL — обязательный
	cfg.AdminURL, err = getEnvRequired("SM_ADMIN_URL")
	if err != nil {
		return nil, err
	}
	cfg.AdminURL = strings.TrimRight(cfg.AdminURL, "/")

	// SM_ADMIN_TIMEOUT — таймаут запросов к AM (по умолчанию 30s)
	cfg.AdminTimeout, err = getEnvDuration("SM_ADMIN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_ADMIN_TIMEOUT: %w", err)
	}

	// --- Storage Element ---

	// SM_STORE_URL — обязательный
	cfg.StoreURL, err = getEnvRequired("SM_STORE_URL")
	if err != nil {
		return nil, err
	}
	cfg.StoreURL = strings.TrimRight(cfg.StoreURL, "/")

	// SM_STORE_TIMEOUT — таймаут загрузки файлов (по умолчанию 120s)
	cfg.StoreTimeout, err = getEnvDuration("SM_STORE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_STORE_TIMEOUT: %w", err)
	}

	// --- IdP ---

	// SM_IDP_TOKEN_URL — обязательный
	cfg.IDPTokenURL, err = getEnvRequired("SM_IDP_TOKEN_URL")
	if err != nil {
		return nil, err
	}

	// SM_IDP_CLIENT_ID — обязательный
	cfg.IDPClientID, err = getEnvRequired("SM_IDP_CLIENT_ID")
	if err != nil {
		return nil, err
	}

	// SM_IDP_CLIENT_SECRET — обязательный
	cfg.IDPClientSecret, err = getEnvRequired("SM_IDP_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}

	// --- JWT ---

	// SM_JWT_JWKS_URL — обязательный
	cfg.JWTJWKSURL, err = getEnvRequired("SM_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}

	// SM_JWT_ISSUER — опциональный (пустой — issuer не проверяется)
	cfg.JWTIssuer = getEnvDefault("SM_JWT_ISSUER", "")

	// SM_JWT_LEEWAY — допуск времени JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("SM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWT_LEEWAY: %w", err)
	}

	// SM_JWKS_REFRESH_INTERVAL — интервал обновления ключей (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("SM_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// SM_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	cfg.JWKSClientTimeout, err = getEnvDuration("SM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// --- Маппинг групп → ролей ---

	// SM_ROLE_SHARER_GROUPS — группы для роли sharer (по умолчанию "docshare-sharers")
	cfg.RoleSharerGroups = parseCSV(getEnvDefault("SM_ROLE_SHARER_GROUPS", "docshare-sharers"))

	// SM_ROLE_VIEWER_GROUPS — группы для роли viewer (по умолчанию "docshare-viewers")
	cfg.RoleViewerGroups = parseCSV(getEnvDefault("SM_ROLE_VIEWER_GROUPS", "docshare-viewers"))

	// --- Каталог ---

	// SM_CATALOG_REFRESH_INTERVAL — интервал обновления каталога (по умолчанию 5m)
	cfg.CatalogRefreshInterval, err = getEnvDuration("SM_CATALOG_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_CATALOG_REFRESH_INTERVAL: %w", err)
	}

	// --- Сессии ---

	// SM_SESSION_TTL — TTL сессии редактирования (по умолчанию 30m)
	cfg.SessionTTL, err = getEnvDuration("SM_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_SESSION_TTL: %w", err)
	}

	// SM_SESSION_MAX — максимум одновременных сессий (по умолчанию 1000)
	cfg.SessionMax, err = getEnvInt("SM_SESSION_MAX", 1000)
	if err != nil {
		return nil, fmt.Errorf("SM_SESSION_MAX: %w", err)
	}
	if cfg.SessionMax < 1 {
		return nil, fmt.Errorf("SM_SESSION_MAX: значение %d должно быть положительным", cfg.SessionMax)
	}

	// --- Просмотр ---

	// SM_BROWSE_SCAN_LIMIT — предел выборки для фильтрации (по умолчанию 5000)
	cfg.BrowseScanLimit, err = getEnvInt("SM_BROWSE_SCAN_LIMIT", 5000)
	if err != nil {
		return nil, fmt.Errorf("SM_BROWSE_SCAN_LIMIT: %w", err)
	}
	if cfg.BrowseScanLimit < 1 || cfg.BrowseScanLimit > 100000 {
		return nil, fmt.Errorf("SM_BROWSE_SCAN_LIMIT: значение %d вне допустимого диапазона 1-100000", cfg.BrowseScanLimit)
	}

	// --- Локаль ---

	// SM_LOCALE — локаль отображения (по умолчанию it)
	cfg.Locale = getEnvDefault("SM_LOCALE", "it")

	// SM_DATE_LAYOUT — layout дат (по умолчанию 02/01/2006)
	cfg.DateLayout = getEnvDefault("SM_DATE_LAYOUT", "02/01/2006")

	// SM_DATETIME_LAYOUT — layout даты и времени (по умолчанию 02/01/2006 15:04)
	cfg.DateTimeLayout = getEnvDefault("SM_DATETIME_LAYOUT", "02/01/2006 15:04")

	// --- Мониторинг зависимостей ---

	// SM_DEPHEALTH_GROUP — имя группы topologymetrics (по умолчанию docshare)
	cfg.DephealthGroup = getEnvDefault("SM_DEPHEALTH_GROUP", "docshare")

	// SM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- TLS ---

	// SM_CA_CERT_PATH — путь к CA-сертификату (опционально)
	cfg.CACertPath = getEnvDefault("SM_CA_CERT_PATH", "")

	// --- Graceful shutdown ---

	// SM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
