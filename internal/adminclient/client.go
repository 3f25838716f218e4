// Пакет adminclient — HTTP-клиент для взаимодействия с Admin Module.
// Получает SA-токен через client_credentials grant, загружает каталог
// классов документов и регистрирует новые поля классов.
package adminclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
	"github.com/bigkaa/docshare/sharing-module/internal/domain/schema"
)

// ErrDuplicateField — Admin Module отклонил добавление поля:
// имя уже занято в классе (HTTP 409).
var ErrDuplicateField = errors.New("поле с таким именем уже существует в классе")

// wireDocumentClass — класс документов в wire-формате Admin Module.
type wireDocumentClass struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Fields      []wireField  `json:"fields"`
	Sharers     []wireSharer `json:"sharers"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// wireField — дескриптор поля в wire-формате Admin Module.
// Булевы флаги передаются как 0|1 (наследие схемы хранения AM).
type wireField struct {
	Name         string       `json:"name"`
	Label        string       `json:"label"`
	DataType     string       `json:"data_type"`
	Required     int          `json:"required"`
	IsPrimaryKey int          `json:"is_primary_key"`
	SortOrder    int          `json:"sort_order"`
	Options      []wireOption `json:"options,omitempty"`
}

// wireOption — вариант enum-поля в wire-формате.
type wireOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// wireSharer — публикатор класса в wire-формате.
type wireSharer struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// AddFieldRequest — запрос на регистрацию нового поля класса.
type AddFieldRequest struct {
	Name      string
	Label     string
	Type      schema.DataType
	Required  bool
	SortOrder int
	Options   []schema.Option
}

// tokenInfo — закэшированный SA-токен с временем истечения.
type tokenInfo struct {
	accessToken string
	expiresAt   time.Time
}

// Client — HTTP-клиент для Admin Module.
type Client struct {
	httpClient   *http.Client
	adminURL     string
	tokenURL     string
	clientID     string
	clientSecret string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	logger       *slog.Logger

	// Кэш SA-токена (thread-safe)
	mu    sync.RWMutex
	token *tokenInfo
}

// New создаёт Admin Module клиент.
// adminURL — базовый URL Admin Module (например, http://admin-module:8000).
// tokenURL — token endpoint IdP для client_credentials grant.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(
	adminURL string,
	tokenURL string,
	caCertPath string,
	timeout time.Duration,
	clientID string,
	clientSecret string,
	logger *slog.Logger,
) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата AM: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат AM добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient:   httpClient,
		adminURL:     strings.TrimRight(adminURL, "/"),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger.With(slog.String("component", "admin_client")),
	}, nil
}

// GetToken возвращает SA-токен для авторизации запросов.
// Использует кэш: если токен ещё валиден (exp - 30s), возвращает закэшированный.
// Иначе запрашивает новый через client_credentials grant к token endpoint IdP.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	// Проверяем кэш (read lock)
	c.mu.RLock()
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		token := c.token.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	// Запрашиваем новый токен (write lock)
	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check после получения write lock
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		return c.token.accessToken, nil
	}

	token, err := c.requestToken(ctx)
	if err != nil {
		return "", err
	}

	return token, nil
}

// GetDocumentClasses загружает полный каталог классов документов.
// GET /api/v1/document-classes
// Каждый класс нормализуется из wire-формата; класс с неизвестным
// типом данных отбрасывает весь ответ — молчаливая деградация типа
// недопустима.
func (c *Client) GetDocumentClasses(ctx context.Context) ([]model.DocumentClass, error) {
	reqURL := c.adminURL + "/api/v1/document-classes"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса GetDocumentClasses: %w", err)
	}

	token, err := c.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена для AM: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("запрос GetDocumentClasses к %s: %w", c.adminURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AM вернул статус %d для каталога классов: %s", resp.StatusCode, string(body))
	}

	var wire struct {
		Items []wireDocumentClass `json:"items"`
		Total int                 `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("декодирование каталога классов от AM: %w", err)
	}

	classes := make([]model.DocumentClass, 0, len(wire.Items))
	for i := range wire.Items {
		dc, err := normalizeClass(&wire.Items[i])
		if err != nil {
			return nil, fmt.Errorf("класс %q: %w", wire.Items[i].Name, err)
		}
		classes = append(classes, *dc)
	}

	return classes, nil
}

// AddField регистрирует новое поле в классе документов.
// POST /api/v1/document-classes/{id}/fields
// Возвращает обновлённый класс. HTTP 409 транслируется в ErrDuplicateField.
func (c *Client) AddField(ctx context.Context, classID string, field AddFieldRequest) (*model.DocumentClass, error) {
	reqURL := fmt.Sprintf("%s/api/v1/document-classes/%s/fields", c.adminURL, classID)

	// Булевы флаги в wire-формате AM передаются как 0|1
	wireReq := wireField{
		Name:      field.Name,
		Label:     field.Label,
		DataType:  string(field.Type),
		Required:  boolToWire(field.Required),
		SortOrder: field.SortOrder,
	}
	for _, opt := range field.Options {
		wireReq.Options = append(wireReq.Options, wireOption{Value: opt.Value, Label: opt.Label})
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("сериализация запроса AddField: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("создание запроса AddField: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение токена для AM: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("запрос AddField к %s: %w", c.adminURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		// продолжаем
	case http.StatusConflict:
		return nil, fmt.Errorf("класс %s, поле %q: %w", classID, field.Name, ErrDuplicateField)
	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("AM вернул статус %d для AddField: %s", resp.StatusCode, string(respBody))
	}

	var wire wireDocumentClass
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("декодирование обновлённого класса от AM: %w", err)
	}

	return normalizeClass(&wire)
}

// normalizeClass нормализует класс из wire-формата AM в доменную модель.
// Неизвестный data_type — ошибка, не fallback: движок схем работает
// только с закрытым набором типов.
func normalizeClass(w *wireDocumentClass) (*model.DocumentClass, error) {
	fields := make([]schema.FieldDescriptor, 0, len(w.Fields))
	for _, wf := range w.Fields {
		opts := make([]schema.Option, 0, len(wf.Options))
		for _, wo := range wf.Options {
			opts = append(opts, schema.Option{Value: wo.Value, Label: wo.Label})
		}

		// Неизвестный data_type — ошибка конструктора, не fallback
		fd, err := schema.NewFieldDescriptor(
			wf.Name,
			wf.Label,
			wf.DataType,
			wf.Required != 0,
			wf.IsPrimaryKey != 0,
			wf.SortOrder,
			opts,
		)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fd)
	}
	fields = schema.OrderFields(fields)

	sharers := make([]model.Sharer, 0, len(w.Sharers))
	for _, ws := range w.Sharers {
		sharers = append(sharers, model.Sharer{
			ID:          ws.ID,
			Username:    ws.Username,
			DisplayName: ws.DisplayName,
			Email:       ws.Email,
		})
	}

	return &model.DocumentClass{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Fields:      fields,
		Sharers:     sharers,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}, nil
}

// requestToken запрашивает новый SA-токен через client_credentials grant.
// Вызывается под write lock.
func (c *Client) requestToken(ctx context.Context) (string, error) {
	data := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("создание запроса token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return "", fmt.Errorf("запрос token к IdP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token endpoint вернул статус %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		Token     string `json:"access_token"` //nolint:gosec // G117: JSON-маппинг OAuth2 ответа
		ExpiresIn int    `json:"expires_in"`
		TokenType string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("декодирование token response: %w", err)
	}

	if tokenResp.Token == "" {
		return "", fmt.Errorf("пустой access_token в ответе IdP")
	}

	// Кэшируем токен (с запасом 30 секунд до истечения)
	c.token = &tokenInfo{
		accessToken: tokenResp.Token,
		expiresAt:   time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - 30*time.Second),
	}

	c.logger.Debug("SA-токен получен от IdP",
		slog.Int("expires_in", tokenResp.ExpiresIn),
	)

	return tokenResp.Token, nil
}

// boolToWire кодирует bool в 0|1 wire-формата AM.
func boolToWire(b bool) int {
	if b {
		return 1
	}
	return 0
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}
