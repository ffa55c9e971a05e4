package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medtalklab/duoscribe/internal/config"
	"github.com/medtalklab/duoscribe/internal/metrics"
	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/repository"
	"github.com/medtalklab/duoscribe/internal/router"
	"github.com/medtalklab/duoscribe/internal/token"
	"github.com/medtalklab/duoscribe/internal/webhook"
)

const (
	StopReasonClientClosed    = "client disconnected"
	StopReasonEndOfStream     = "end of audio stream"
	StopReasonMaxDuration     = "maximum session duration reached"
	StopReasonRecognizerError = "recognizer stream error"
	StopReasonServerClosed    = "server shutting down"
)

const updateChannelCapacity = 64

type Manager struct {
	cfg        *config.Config
	repo       repository.Repository
	recognizer recognizer.Recognizer
	webhook    webhook.Sender
	metrics    *metrics.Metrics

	mu          sync.Mutex
	sessions    map[string]*liveSession
	stopReasons map[string]string
}

type liveSession struct {
	id        string
	langs     recognizer.LanguagePair
	startedAt time.Time
	writer    recognizer.StreamWriter
	cancel    context.CancelFunc
	timer     *time.Timer
	updates   chan router.Update

	// convMu serializes access to conv and stopped between the recognizer's
	// read goroutine and stop/finalization. updates is closed under convMu
	// so no send can race the close.
	convMu  sync.Mutex
	conv    *router.Conversation
	stopped bool
}

func NewManager(cfg *config.Config, repo repository.Repository, rec recognizer.Recognizer, wh webhook.Sender, mtr *metrics.Metrics) *Manager {
	return &Manager{
		cfg:         cfg,
		repo:        repo,
		recognizer:  rec,
		webhook:     wh,
		metrics:     mtr,
		sessions:    make(map[string]*liveSession),
		stopReasons: make(map[string]string),
	}
}

// Handle is the transport-facing view of one running session.
type Handle struct {
	manager *Manager
	session *liveSession
}

func (h *Handle) ID() string { return h.session.id }

// Updates delivers routing updates for every accepted token. The channel is
// closed when the session finishes.
func (h *Handle) Updates() <-chan router.Update { return h.session.updates }

func (h *Handle) PushAudio(pcm []byte) error {
	return h.session.writer.Write(pcm)
}

func (h *Handle) EndAudio() error {
	return h.manager.Stop(h.session.id, StopReasonEndOfStream)
}

func (h *Handle) Stop(reason string) error {
	return h.manager.Stop(h.session.id, reason)
}

// Start creates a conversation, registers the session and opens the
// recognition stream. Empty languages fall back to the configured defaults.
func (m *Manager) Start(ctx context.Context, primaryLang, secondaryLang string) (*Handle, error) {
	if primaryLang == "" {
		primaryLang = m.cfg.DefaultPrimaryLanguage
	}
	if secondaryLang == "" {
		secondaryLang = m.cfg.DefaultSecondaryLanguage
	}

	conv, err := router.New(router.Config{
		PrimaryLanguage:   primaryLang,
		SecondaryLanguage: secondaryLang,
		PrimaryRole:       m.cfg.PrimaryRole,
		SecondaryRole:     m.cfg.SecondaryRole,
		DisplayWindow:     m.cfg.DisplayWindowChars,
	})
	if err != nil {
		return nil, fmt.Errorf("configure conversation: %w", err)
	}

	id := uuid.NewString()
	startedAt := time.Now()
	if err := m.repo.CreateSession(ctx, repository.CreateSessionInput{
		ID:                id,
		PrimaryLanguage:   primaryLang,
		SecondaryLanguage: secondaryLang,
		StartedAt:         startedAt,
	}); err != nil {
		slog.Error("failed to create session in repository", "error", err)
		return nil, err
	}
	slog.Info("created session", "session_id", id, "primary_language", primaryLang, "secondary_language", secondaryLang)

	ls := &liveSession{
		id:        id,
		langs:     recognizer.LanguagePair{Primary: primaryLang, Secondary: secondaryLang},
		startedAt: startedAt,
		conv:      conv,
		updates:   make(chan router.Update, updateChannelCapacity),
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	ls.cancel = cancel
	receiver := &tokenReceiver{manager: m, session: ls}
	writer, err := m.recognizer.StartStreaming(streamCtx, id, ls.langs, receiver)
	if err != nil {
		cancel()
		slog.Error("failed to start recognizer streaming", "error", err, "session_id", id)
		return nil, err
	}
	ls.writer = writer
	ls.timer = time.AfterFunc(time.Duration(m.cfg.MaxSessionDurationMin)*time.Minute, func() {
		if err := m.Stop(id, StopReasonMaxDuration); err != nil {
			slog.Error("failed to stop session at max duration", "error", err, "session_id", id)
		}
	})

	m.mu.Lock()
	m.sessions[id] = ls
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.RecordSessionStart()
	}
	slog.Info("session activated", "session_id", id, "same_language", ls.langs.SameLanguage())

	return &Handle{manager: m, session: ls}, nil
}

// Stop tears the session down and finalizes it asynchronously. Stopping an
// unknown or already stopped session is a no-op.
func (m *Manager) Stop(sessionID, reason string) error {
	m.mu.Lock()
	ls, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		m.stopReasons[sessionID] = reason
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	slog.Info("stopping session", "session_id", sessionID, "reason", reason)
	ls.timer.Stop()
	ls.cancel()
	_ = ls.writer.Close()
	ls.convMu.Lock()
	ls.stopped = true
	close(ls.updates)
	ls.convMu.Unlock()

	go m.finalize(ls, reason)
	return nil
}

// StopAllSessions stops every running session with the given reason. Used at
// server shutdown.
func (m *Manager) StopAllSessions(reason string) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.Stop(id, reason); err != nil {
			slog.Error("failed to stop session", "error", err, "session_id", id)
		}
	}
}

func (m *Manager) finalize(ls *liveSession, reason string) {
	ctx := context.Background()
	endedAt := time.Now()

	ls.convMu.Lock()
	entries := ls.conv.ExportEntries()
	original, primary, secondary := ls.conv.ViewTexts()
	ls.convMu.Unlock()

	payload := buildConversationPayload(ls.id, ls.langs, ls.startedAt, endedAt, reason, original, primary, secondary, entries)
	payloadJSON, err := encodePayload(payload)
	if err != nil {
		slog.Error("failed to encode conversation payload", "error", err, "session_id", ls.id)
	}

	if err := m.repo.InsertEntries(ctx, entryInputs(ls.id, entries)); err != nil {
		slog.Error("failed to insert conversation entries", "error", err, "session_id", ls.id)
	} else if m.metrics != nil {
		m.metrics.EntriesExported.Add(float64(len(entries)))
	}
	if err := m.repo.CompleteSession(ctx, repository.CompleteSessionInput{
		SessionID:          ls.id,
		EndedAt:            endedAt,
		StopReason:         reason,
		EntryCount:         len(entries),
		OriginalText:       original,
		PrimaryText:        primary,
		SecondaryText:      secondary,
		WebhookPayloadJSON: payloadJSON,
	}); err != nil {
		slog.Error("failed to complete session", "error", err, "session_id", ls.id)
	}
	if err := m.webhook.SendConversation(ctx, payload); err != nil {
		slog.Error("failed to send conversation webhook", "error", err, "session_id", ls.id)
		if m.metrics != nil {
			m.metrics.WebhookFailures.Inc()
		}
	}
	if m.metrics != nil {
		m.metrics.RecordSessionEnd(endedAt.Sub(ls.startedAt))
	}
	slog.Info("session finalized", "session_id", ls.id, "entries", len(entries), "reason", reason)
}

func entryInputs(sessionID string, entries []router.Entry) []repository.InsertEntryInput {
	inputs := make([]repository.InsertEntryInput, 0, len(entries))
	for i, e := range entries {
		inputs = append(inputs, repository.InsertEntryInput{
			SessionID:         sessionID,
			EntryIndex:        i,
			Speaker:           e.Speaker,
			Text:              e.Text,
			Language:          e.Language,
			TranslationStatus: string(e.Status),
			SpokenAt:          e.Timestamp,
		})
	}
	return inputs
}

type tokenReceiver struct {
	manager *Manager
	session *liveSession
}

func (r *tokenReceiver) OnTokens(tokens []token.Token) {
	ls := r.session
	for _, tok := range tokens {
		ls.convMu.Lock()
		if ls.stopped {
			ls.convMu.Unlock()
			return
		}
		update := ls.conv.ProcessToken(tok)
		if update.Speaker == "" {
			ls.convMu.Unlock()
			if r.manager.metrics != nil {
				r.manager.metrics.TokensDropped.Inc()
			}
			continue
		}
		select {
		case ls.updates <- update:
		default:
			slog.Warn("update channel full; dropping update", "session_id", ls.id, "final", update.Final)
		}
		ls.convMu.Unlock()
		if r.manager.metrics != nil {
			r.manager.metrics.RecordToken(update.Final)
		}
	}
}

func (r *tokenReceiver) OnError(err error) {
	reason := r.manager.takeStopReason(r.session.id)
	if errors.Is(err, context.Canceled) || strings.Contains(err.Error(), "operation was cancelled") {
		slog.Info("recognizer stream closed", "error", err, "session_id", r.session.id, "reason", reason)
		return
	}
	slog.Error("recognizer stream error", "error", err, "session_id", r.session.id, "reason", reason)
	if r.manager.metrics != nil {
		r.manager.metrics.RecognizerErrors.Inc()
	}
	if err := r.manager.Stop(r.session.id, StopReasonRecognizerError); err != nil {
		slog.Error("failed to stop session after recognizer error", "error", err, "session_id", r.session.id)
	}
}

func (m *Manager) takeStopReason(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	reason := m.stopReasons[sessionID]
	delete(m.stopReasons, sessionID)
	if reason == "" {
		return "unknown (likely remote stream close or network interruption)"
	}
	return reason
}
