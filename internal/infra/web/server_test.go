package web

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lead_intake_bot/internal/app"
	"lead_intake_bot/internal/domain/conversation"
	"lead_intake_bot/internal/domain/lead"
	"lead_intake_bot/internal/infra/queue"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *queue.MemoryQueue) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	repo := lead.NewInMemoryRepository()
	q := queue.NewMemoryQueue()
	convService := app.NewConversationService(repo, q, logrus.NewEntry(l), nil, 48*time.Hour)
	return NewServer(":0", convService, logrus.NewEntry(l)), q
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StartChat(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{"name": "Alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeChat(t, rec)
	assert.NotEmpty(t, resp.LeadID, "a lead ID is generated when the client supplies none")
	require.Len(t, resp.Responses, 1)
	assert.Contains(t, resp.Responses[0].Text, "Hey Alice")
}

func TestServer_StartChatRequiresName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/chat", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SendMessageFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/chat", map[string]string{"lead_id": "web-1", "name": "Alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/chat/web-1/messages", map[string]string{"message": "yes"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeChat(t, rec)
	require.Len(t, resp.Responses, 1)
	assert.Equal(t, "Great! What is your age?", resp.Responses[0].Text)

	rec = doJSON(t, h, http.MethodGet, "/api/chat/web-1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		LeadID  string                 `json:"lead_id"`
		History []conversation.Message `json:"history"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hist))
	assert.Equal(t, "web-1", hist.LeadID)
	require.Len(t, hist.History, 3)
	assert.Equal(t, conversation.AuthorUser, hist.History[1].Author)
}

func TestServer_SendMessageRejectsEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, http.MethodPost, "/api/chat", map[string]string{"lead_id": "web-1", "name": "Alice"})

	rec := doJSON(t, h, http.MethodPost, "/api/chat/web-1/messages", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errBody map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "empty message received", errBody["error"])
}

func TestServer_FollowUpPolling(t *testing.T) {
	srv, q := newTestServer(t)
	h := srv.Handler()

	doJSON(t, h, http.MethodPost, "/api/chat", map[string]string{"lead_id": "web-1", "name": "Alice"})

	rec := doJSON(t, h, http.MethodGet, "/api/chat/web-1/followup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "{}", rec.Body.String(), "nothing pending yet")

	q.Enqueue("web-1", conversation.NudgeText)

	rec = doJSON(t, h, http.MethodGet, "/api/chat/web-1/followup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Message *conversation.Message `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Message)
	assert.Equal(t, conversation.NudgeText, resp.Message.Text)

	// Consumed: the next poll comes back empty.
	rec = doJSON(t, h, http.MethodGet, "/api/chat/web-1/followup", nil)
	assert.JSONEq(t, "{}", rec.Body.String())
}
