// Package web exposes the webchat transport: a small JSON API that starts
// conversations, relays turns, and lets the browser poll for proactive
// follow-up messages.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lead_intake_bot/internal/app"
	"lead_intake_bot/internal/domain/conversation"
	"lead_intake_bot/internal/infra/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Server struct {
	convService *app.ConversationService
	logger      *logrus.Entry
	httpServer  *http.Server
}

func NewServer(addr string, convService *app.ConversationService, logger *logrus.Entry) *Server {
	s := &Server{
		convService: convService,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/", s.handleStartChat)
		r.Route("/{leadID}", func(r chi.Router) {
			r.Post("/messages", s.handleSendMessage)
			r.Get("/followup", s.handleCheckFollowUp)
			r.Get("/history", s.handleHistory)
		})
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Web server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type startChatRequest struct {
	LeadID string `json:"lead_id"`
	Name   string `json:"name"`
}

type chatResponse struct {
	LeadID    string                 `json:"lead_id"`
	Responses []conversation.Message `json:"responses"`
}

type messageRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request) {
	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	leadID := strings.TrimSpace(req.LeadID)
	if leadID == "" {
		leadID = uuid.NewString()
	}

	msgs, err := s.convService.StartConversation(r.Context(), leadID, strings.TrimSpace(req.Name))
	if err != nil {
		s.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to start chat")
		writeError(w, http.StatusInternalServerError, "could not start conversation")
		return
	}
	writeJSON(w, http.StatusCreated, chatResponse{LeadID: leadID, Responses: msgs})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeError(w, http.StatusBadRequest, "empty message received")
		return
	}

	msgs, err := s.convService.HandleIncoming(r.Context(), leadID, text)
	if err != nil {
		s.logger.WithError(err).WithField("lead_id", leadID).Error("Failed to process message")
		writeError(w, http.StatusInternalServerError, "could not process message")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{LeadID: leadID, Responses: msgs})
}

// handleCheckFollowUp is the polling endpoint the browser hits to pick up
// scheduler-initiated messages. Popping consumes the entry, so each nudge is
// handed out exactly once.
func (s *Server) handleCheckFollowUp(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	msg, ok := s.convService.PollFollowUp(leadID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	writeJSON(w, http.StatusOK, map[string]any{
		"lead_id": leadID,
		"history": s.convService.History(leadID),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
