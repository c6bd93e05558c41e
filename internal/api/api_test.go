package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wierdbytes/tellm/internal/api"
	"github.com/wierdbytes/tellm/internal/chat"
	"github.com/wierdbytes/tellm/internal/database"
	pkgapi "github.com/wierdbytes/tellm/pkg/api"
)

func newTestRouter(t *testing.T) (chi.Router, *database.Store) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.GetMigrator(db).Migrate())

	store := database.NewStore(db)
	router := chi.NewRouter()
	api.NewService(store).AddRoutes(router)
	return router, store
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp pkgapi.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestGetMessagesEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, 100, 1, 0, chat.RoleUser, "Hello", nil))
	require.NoError(t, store.Append(ctx, 100, 2, 1, chat.RoleAssistant, "Hi", nil))
	require.NoError(t, store.Append(ctx, 100, 3, 2, chat.RoleUser, "more", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats/100/messages?limit=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp pkgapi.GetMessagesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, int64(2), resp.Messages[0].MessageID)
	assert.Equal(t, int64(3), resp.Messages[1].MessageID)
	assert.Equal(t, "assistant", resp.Messages[0].Role)
}

func TestGetMessagesBadChatID(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats/not-a-number/messages", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChainEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, 100, 1, 0, chat.RoleUser, "Hello", nil))
	require.NoError(t, store.Append(ctx, 100, 2, 1, chat.RoleAssistant, "Hi, how can I help?", nil))
	require.NoError(t, store.Append(ctx, 100, 3, 2, chat.RoleUser, "tell me more", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats/100/chain/3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp pkgapi.GetChainResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []int64{1, 2, 3}, resp.MessageIDs)
	assert.False(t, resp.Truncated)
	assert.Equal(t, []pkgapi.TranscriptTurn{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi, how can I help?"},
		{Role: "user", Content: "tell me more"},
	}, resp.Transcript)
}

func TestGetChainUnknownMessage(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chats/100/chain/42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp pkgapi.GetChainResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []int64{42}, resp.MessageIDs)
	assert.Empty(t, resp.Transcript)
}
