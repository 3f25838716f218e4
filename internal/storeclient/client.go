// Пакет storeclient — HTTP-клиент для взаимодействия со Storage Element.
// Поддерживает TLS с кастомным CA (SM_CA_CERT_PATH).
// Операции: Upload (POST /api/v1/files, multipart), Download (GET /api/v1/files/{id}/download).
package storeclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bigkaa/docshare/sharing-module/internal/domain/model"
)

// TokenProvider — функция, возвращающая JWT для авторизации запросов к SE.
// Получает токен от IdP через Client Credentials flow.
type TokenProvider func(ctx context.Context) (string, error)

// uploadResponse — метаданные файла из ответа SE на загрузку.
type uploadResponse struct {
	FileID           string `json:"file_id"`
	OriginalFilename string `json:"original_filename"`
	ContentType      string `json:"content_type"`
	Size             int64  `json:"size"`
	Checksum         string `json:"checksum"`
	UploadedBy       string `json:"uploaded_by"`
	UploadedAt       string `json:"uploaded_at"`
}

// Client — HTTP-клиент для Storage Element.
type Client struct {
	httpClient    *http.Client
	storeURL      string
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// New создаёт SE-клиент.
// storeURL — базовый URL Storage Element.
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// tokenProvider — функция для получения JWT (nil допустим только в тестах).
func New(
	storeURL string,
	caCertPath string,
	timeout time.Duration,
	tokenProvider TokenProvider,
	logger *slog.Logger,
) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата SE: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат SE добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient:    httpClient,
		storeURL:      strings.TrimRight(storeURL, "/"),
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "store_client")),
	}, nil
}

// Upload загружает файл на Storage Element.
// POST /api/v1/files — multipart/form-data, поле file.
// Возвращает метаданные сохранённого файла.
func (c *Client) Upload(ctx context.Context, filename, contentType string, content io.Reader) (*model.BatchFile, error) {
	// Тело multipart собирается через pipe: файл не буферизуется целиком
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			_ = pw.CloseWithError(fmt.Errorf("создание multipart-части: %w", err))
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("копирование содержимого файла: %w", err))
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	reqURL := c.storeURL + "/api/v1/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, pr)
	if err != nil {
		return nil, fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if contentType != "" {
		req.Header.Set("X-Content-Type", contentType)
	}

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("получение токена для SE: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("запрос Upload к %s: %w", c.storeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("SE вернул статус %d для Upload %q: %s", resp.StatusCode, filename, string(body))
	}

	var upResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upResp); err != nil {
		return nil, fmt.Errorf("декодирование ответа Upload от SE: %w", err)
	}

	c.logger.Debug("файл загружен на SE",
		slog.String("file_id", upResp.FileID),
		slog.String("filename", upResp.OriginalFilename),
		slog.Int64("size", upResp.Size),
	)

	return &model.BatchFile{
		FileID:           upResp.FileID,
		OriginalFilename: upResp.OriginalFilename,
		ContentType:      upResp.ContentType,
		Size:             upResp.Size,
		Checksum:         upResp.Checksum,
	}, nil
}

// Download открывает поток содержимого файла.
// GET /api/v1/files/{id}/download — вызывающий обязан закрыть reader.
func (c *Client) Download(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	reqURL := fmt.Sprintf("%s/api/v1/files/%s/download", c.storeURL, fileID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("создание запроса Download: %w", err)
	}

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("получение токена для SE: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, "", fmt.Errorf("запрос Download к %s: %w", c.storeURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, "", fmt.Errorf("SE вернул статус %d для Download %s: %s", resp.StatusCode, fileID, string(body))
	}

	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA.
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
