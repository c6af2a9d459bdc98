package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accord-ai/config"
	"accord-ai/middleware"
	"accord-ai/models"
	"accord-ai/services"
)

type testEnv struct {
	app     *fiber.App
	service *services.DatasetService
	sockets *services.WebSocketManager
	quota   func(ctx context.Context, userID string) error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := services.NewMemoryDatasetStore()
	service := services.NewDatasetService(store)
	matcher := services.NewDatasetMatcher(store)
	resolver := services.NewResolver(matcher, nil, nil, service, services.DefaultResolverConfig())
	sockets := services.NewWebSocketManager()

	env := &testEnv{service: service, sockets: sockets}
	quota := func(ctx context.Context, userID string) error {
		if env.quota == nil {
			return nil
		}
		return env.quota(ctx, userID)
	}

	env.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(env.app, Routes{
		AI:      NewAIHandler(resolver, quota, 1024),
		Dataset: NewDatasetHandler(service, matcher, sockets),
		Health:  NewHealthHandler(nil, sockets, "memory"),
	})
	return env
}

// loginAs makes every session cookie resolve to a user with role
func loginAs(t *testing.T, role models.UserRole) {
	t.Helper()
	original := middleware.SessionLookup
	middleware.SessionLookup = func(ctx context.Context, sessionID string) (*models.Session, error) {
		return &models.Session{SessionID: sessionID, UserID: "user-1", Email: "a@example.com", Role: string(role)}, nil
	}
	t.Cleanup(func() { middleware.SessionLookup = original })
}

func (e *testEnv) do(t *testing.T, method, path string, body any, withSession bool) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if withSession {
		req.AddCookie(&http.Cookie{Name: services.SessionCookieName, Value: "session-1"})
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func uploadRequest(t *testing.T, path, field, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile(field, fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("customPrompt", ""))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// typedUploadRequest sends one file part with an explicit Content-Type
func typedUploadRequest(t *testing.T, path, fileName, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestChat_RequiresMessage(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/ai/chat-anonymous", map[string]any{"message": "   "}, false)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Message is required", body["message"])
}

func TestChat_DatasetAnswer(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.service.AddResponse(context.Background(), "greetings", "hello", "Hi there!", nil, ""))

	status, body := env.do(t, http.MethodPost, "/api/ai/chat-anonymous", map[string]any{"message": "Hello"}, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Hi there!", body["response"])
	assert.Equal(t, models.SourceCustomDataset, body["source"])
	assert.Equal(t, "exact", body["matchType"])
	assert.Equal(t, 1.0, body["confidence"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestChat_FinalFallback(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "kya haal hai"}, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.SourceFinalFallback, body["source"])
	assert.Equal(t, config.FallbackResponse(models.LanguageHindi), body["response"])
	assert.Equal(t, "hindi", body["detectedLanguage"])
	assert.NotContains(t, body, "confidence")
}

func TestChat_DailyLimit(t *testing.T) {
	env := newTestEnv(t)
	loginAs(t, models.RoleUser)

	var charged []string
	env.quota = func(ctx context.Context, userID string) error {
		charged = append(charged, userID)
		return services.ErrDailyLimitReached
	}

	status, body := env.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hello"}, true)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, true, body["limitReached"])
	assert.Equal(t, []string{"user-1"}, charged)

	// anonymous requests are never charged
	status, _ = env.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hello", "isAnonymous": true}, true)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, charged, 1)
}

func TestChat_QuotaUserNotFound(t *testing.T) {
	env := newTestEnv(t)
	loginAs(t, models.RoleUser)
	env.quota = func(ctx context.Context, userID string) error { return services.ErrUserNotFound }

	status, _ := env.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hello"}, true)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestChat_QuotaStoreError(t *testing.T) {
	env := newTestEnv(t)
	loginAs(t, models.RoleUser)
	env.quota = func(ctx context.Context, userID string) error { return errors.New("mongo down") }

	status, body := env.do(t, http.MethodPost, "/api/ai/chat", map[string]any{"message": "hello"}, true)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, false, body["success"])
}

func TestFile_TextFallback(t *testing.T) {
	env := newTestEnv(t)

	req := uploadRequest(t, "/api/ai/file-anonymous", "file", "notes.txt", []byte("Meeting moved to Friday."))
	status, body := env.send(t, req)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.SourceFileFallback, body["source"])
	assert.Equal(t, "notes.txt", body["fileName"])
	assert.Equal(t, "Text", body["fileType"])
	assert.Equal(t, float64(len("Meeting moved to Friday.")), body["extractedTextLength"])
	assert.Contains(t, body["response"], "Meeting moved to Friday.")
}

func TestFile_PDFFieldName(t *testing.T) {
	env := newTestEnv(t)

	req := uploadRequest(t, "/api/ai/pdf-anonymous", "file", "notes.txt", []byte("hello"))
	status, body := env.send(t, req)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No file provided", body["message"])
}

func TestFile_Errors(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.send(t, uploadRequest(t, "/api/ai/file-anonymous", "file", "", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No file provided", body["message"])

	status, _ = env.send(t, uploadRequest(t, "/api/ai/file-anonymous", "file", "archive.zip", []byte("PK\x03\x04")))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.send(t, uploadRequest(t, "/api/ai/file-anonymous", "file", "blank.txt", []byte("   ")))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Could not extract text from blank.txt or the file appears to be empty", body["message"])

	status, _ = env.send(t, uploadRequest(t, "/api/ai/file-anonymous", "file", "big.txt", bytes.Repeat([]byte("a"), 2048)))
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, status)
}

func TestFile_LegacyDOCIsBadRequest(t *testing.T) {
	env := newTestEnv(t)

	ole := []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
	status, body := env.send(t, typedUploadRequest(t, "/api/ai/file-anonymous", "old.doc", "application/msword", ole))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["message"], "Word documents (.docx)")
}

func TestDataset_PublicEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.service.AddResponse(ctx, "greetings", "hello", "Hi there!", nil, ""))
	require.NoError(t, env.service.AddResponse(ctx, "greetings", "bye", "Goodbye!", nil, ""))

	status, body := env.do(t, http.MethodGet, "/api/dataset/categories", nil, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{"greetings"}, body["categories"])

	status, body = env.do(t, http.MethodGet, "/api/dataset/category/greetings", nil, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]any{"hello": "Hi there!", "bye": "Goodbye!"}, body["responses"])

	status, body = env.do(t, http.MethodGet, "/api/dataset/stats", nil, false)
	assert.Equal(t, fiber.StatusOK, status)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["totalResponses"])

	status, body = env.do(t, http.MethodGet, "/api/dataset/search?q=good&limit=5", nil, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, _ = env.do(t, http.MethodGet, "/api/dataset/search", nil, false)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPost, "/api/dataset/test", map[string]any{"message": "hello"}, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["hasMatch"])
}

func TestDataset_AdminRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	entry := map[string]any{"category": "greetings", "key": "hello", "response": "Hi"}

	status, _ := env.do(t, http.MethodPost, "/api/dataset/add", entry, false)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	loginAs(t, models.RoleUser)
	status, body := env.do(t, http.MethodPost, "/api/dataset/add", entry, true)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Admin access required", body["message"])
}

func TestDataset_AdminLifecycle(t *testing.T) {
	env := newTestEnv(t)
	loginAs(t, models.RoleAdmin)

	listener := &services.ChatConnection{ID: "listener", Send: make(chan []byte, 8)}
	env.sockets.RegisterConnection(listener)
	defer env.sockets.UnregisterConnection(listener.ID)

	entry := map[string]any{"category": "greetings", "key": "hello", "response": "Hi"}
	status, body := env.do(t, http.MethodPost, "/api/dataset/add", entry, true)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Response added successfully", body["message"])

	var event services.EventPayload
	require.NoError(t, json.Unmarshal(<-listener.Send, &event))
	assert.Equal(t, "dataset_updated", event.Type)

	status, _ = env.do(t, http.MethodPost, "/api/dataset/add", entry, true)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/dataset/add", map[string]any{"category": "greetings"}, true)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.do(t, http.MethodPut, "/api/dataset/update",
		map[string]any{"category": "greetings", "key": "hello", "newResponse": "Hello!"}, true)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Hello!", body["newResponse"])

	status, _ = env.do(t, http.MethodPut, "/api/dataset/update",
		map[string]any{"category": "greetings", "key": "missing", "newResponse": "x"}, true)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.do(t, http.MethodDelete, "/api/dataset/delete", map[string]any{"category": "greetings", "key": "hello"}, true)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, http.MethodDelete, "/api/dataset/delete", map[string]any{"category": "greetings", "key": "hello"}, true)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDataset_Import(t *testing.T) {
	env := newTestEnv(t)
	loginAs(t, models.RoleAdmin)

	payload := map[string]any{"responses": map[string]any{
		"greetings": map[string]any{"hello": "Hi", "bye": "Bye"},
	}}
	status, body := env.do(t, http.MethodPost, "/api/dataset/import", payload, true)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["successCount"])
	assert.Equal(t, "Import completed: 2 successful, 0 failed", body["message"])
	assert.NotContains(t, body, "errors")

	status, body = env.do(t, http.MethodPost, "/api/dataset/import", payload, true)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["errorCount"])
	assert.Len(t, body["errors"], 2)

	status, _ = env.do(t, http.MethodPost, "/api/dataset/import", map[string]any{}, true)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/health", nil, false)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["store"])

	app := fiber.New()
	app.Get("/health", NewHealthHandler(func(ctx context.Context) error {
		return errors.New("no reachable servers")
	}, nil, "mongodb").Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(raw), "degraded"))
}

func TestHealth_ActiveSessions(t *testing.T) {
	app := fiber.New()
	h := NewHealthHandler(nil, nil, "mongodb").WithSessionCount(func(ctx context.Context) (int64, error) {
		return 3, nil
	})
	app.Get("/health", h.Check)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(3), body["activeSessions"])
}

func TestChatSocketReply(t *testing.T) {
	store := services.NewMemoryDatasetStore()
	service := services.NewDatasetService(store)
	require.NoError(t, service.AddResponse(context.Background(), "greetings", "hello", "Hi there!", nil, ""))
	resolver := services.NewResolver(services.NewDatasetMatcher(store), nil, nil, service, services.DefaultResolverConfig())
	h := NewChatSocketHandler(resolver, services.NewWebSocketManager())
	ctx := context.Background()

	assert.Equal(t, map[string]string{"type": "pong"}, h.reply(ctx, []byte(`{"type":"ping"}`)))

	invalid := h.reply(ctx, []byte(`not json`)).(map[string]interface{})
	assert.Equal(t, "Invalid message format", invalid["message"])

	empty := h.reply(ctx, []byte(`{"message":" "}`)).(map[string]interface{})
	assert.Equal(t, "Message is required", empty["message"])

	answer := h.reply(ctx, []byte(`{"message":"hello"}`)).(models.ChatResponse)
	assert.True(t, answer.Success)
	assert.Equal(t, "Hi there!", answer.Response)
	assert.Equal(t, models.SourceCustomDataset, answer.Source)
}
