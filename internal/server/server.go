// Package server exposes the HTTP and WebSocket surface of the backend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medtalklab/duoscribe/internal/config"
	"github.com/medtalklab/duoscribe/internal/repository"
	"github.com/medtalklab/duoscribe/internal/router"
	"github.com/medtalklab/duoscribe/internal/session"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	cfg     *config.Config
	manager *session.Manager
	repo    repository.Repository

	httpServer *http.Server
}

func New(cfg *config.Config, manager *session.Manager, repo repository.Repository, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		repo:    repo,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/recordings", s.handleRecordings).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	slog.Info("http server listening", "addr", s.cfg.ListenAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.cfg.RecognizerBackend,
	})
}

type recordingResponse struct {
	ID                string `json:"id"`
	PrimaryLanguage   string `json:"primary_language"`
	SecondaryLanguage string `json:"secondary_language"`
	StartedAt         string `json:"started_at"`
	EndedAt           string `json:"ended_at,omitempty"`
	StopReason        string `json:"stop_reason,omitempty"`
	EntryCount        int    `json:"entry_count"`
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.repo.ListCompletedSessions(r.Context())
	if err != nil {
		slog.Error("failed to list completed sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list recordings"})
		return
	}
	out := make([]recordingResponse, 0, len(sessions))
	for _, sess := range sessions {
		rec := recordingResponse{
			ID:                sess.ID,
			PrimaryLanguage:   sess.PrimaryLanguage,
			SecondaryLanguage: sess.SecondaryLanguage,
			StartedAt:         sess.StartedAt.UTC().Format(time.RFC3339),
			StopReason:        sess.StopReason,
			EntryCount:        sess.EntryCount,
		}
		if sess.EndedAt != nil {
			rec.EndedAt = sess.EndedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"recordings": out})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

type initMessage struct {
	PrimaryLanguage   string `json:"primary_language"`
	SecondaryLanguage string `json:"secondary_language"`
}

type serverMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Speaker   string            `json:"speaker,omitempty"`
	Text      string            `json:"text,omitempty"`
	Partials  map[string]string `json:"partials,omitempty"`
	Boxes     *router.Snapshot  `json:"boxes,omitempty"`
	Error     string            `json:"error,omitempty"`
}

const initReadTimeout = 15 * time.Second

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var init initMessage
	initCtx, cancelInit := context.WithTimeout(ctx, initReadTimeout)
	err = wsjson.Read(initCtx, conn, &init)
	cancelInit()
	if err != nil {
		slog.Warn("failed to read init message", "error", err)
		conn.Close(websocket.StatusPolicyViolation, "expected init message")
		return
	}

	handle, err := s.manager.Start(ctx, init.PrimaryLanguage, init.SecondaryLanguage)
	if err != nil {
		slog.Error("failed to start session", "error", err)
		_ = wsjson.Write(ctx, conn, serverMessage{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusInternalError, "failed to start session")
		return
	}
	slog.Info("websocket session started", "session_id", handle.ID())

	if err := wsjson.Write(ctx, conn, serverMessage{Type: "connected", SessionID: handle.ID()}); err != nil {
		_ = handle.Stop(session.StopReasonClientClosed)
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeUpdates(ctx, conn, handle)
	}()

	s.readAudio(ctx, conn, handle)

	// The manager closed the update channel during Stop; drain before the
	// saved confirmation so the client sees its final snapshot first.
	<-writerDone
	_ = wsjson.Write(ctx, conn, serverMessage{Type: "saved", SessionID: handle.ID()})
	conn.Close(websocket.StatusNormalClosure, "session saved")
}

// writeUpdates forwards routing updates to the client until the session's
// update channel closes.
func (s *Server) writeUpdates(ctx context.Context, conn *websocket.Conn, handle *session.Handle) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-handle.Updates():
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, updateMessage(update)); err != nil {
				slog.Warn("failed to write update", "error", err, "session_id", handle.ID())
				return
			}
		}
	}
}

func updateMessage(update router.Update) serverMessage {
	msg := serverMessage{
		Type:     "partial",
		Speaker:  update.Speaker,
		Text:     update.Text,
		Partials: update.Partials,
	}
	if update.Final {
		msg.Type = "final"
		msg.Boxes = update.Snapshot
	}
	return msg
}

// readAudio consumes client frames until the stream ends. Binary frames carry
// PCM audio; an empty binary frame signals end of audio.
func (s *Server) readAudio(ctx context.Context, conn *websocket.Conn, handle *session.Handle) {
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Info("client closed websocket", "session_id", handle.ID())
			} else {
				slog.Warn("websocket read failed", "error", err, "session_id", handle.ID())
			}
			_ = handle.Stop(session.StopReasonClientClosed)
			return
		}
		if msgType != websocket.MessageBinary {
			continue
		}
		if len(data) == 0 {
			_ = handle.EndAudio()
			return
		}
		if err := handle.PushAudio(data); err != nil {
			slog.Error("failed to push audio", "error", err, "session_id", handle.ID())
			_ = handle.Stop(session.StopReasonRecognizerError)
			return
		}
	}
}
