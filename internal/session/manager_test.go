package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/medtalklab/duoscribe/internal/config"
	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/repository"
	"github.com/medtalklab/duoscribe/internal/token"
	"github.com/medtalklab/duoscribe/internal/webhook"
)

type mockRepository struct {
	mu            sync.Mutex
	createCalls   []repository.CreateSessionInput
	completeCalls []repository.CompleteSessionInput
	insertCalls   [][]repository.InsertEntryInput
}

func (m *mockRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls = append(m.createCalls, input)
	return nil
}

func (m *mockRepository) CompleteSession(_ context.Context, input repository.CompleteSessionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls = append(m.completeCalls, input)
	return nil
}

func (m *mockRepository) ListCompletedSessions(_ context.Context) ([]repository.Session, error) {
	return nil, nil
}

func (m *mockRepository) InsertEntries(_ context.Context, entries []repository.InsertEntryInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls = append(m.insertCalls, entries)
	return nil
}

func (m *mockRepository) ListEntriesBySessionID(_ context.Context, _ string) ([]repository.ConversationEntry, error) {
	return nil, nil
}

func (m *mockRepository) completeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completeCalls)
}

type mockRecognizer struct {
	mu       sync.Mutex
	receiver recognizer.ResultReceiver
	langs    recognizer.LanguagePair
	writer   *mockStreamWriter
}

func (m *mockRecognizer) StartStreaming(_ context.Context, _ string, langs recognizer.LanguagePair, receiver recognizer.ResultReceiver) (recognizer.StreamWriter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiver = receiver
	m.langs = langs
	m.writer = &mockStreamWriter{}
	return m.writer, nil
}

type mockStreamWriter struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (m *mockStreamWriter) Write(pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, pcm)
	return nil
}

func (m *mockStreamWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type mockWebhookSender struct {
	mu       sync.Mutex
	payloads []webhook.ConversationPayload
}

func (m *mockWebhookSender) SendConversation(_ context.Context, payload webhook.ConversationPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *mockWebhookSender) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func newTestManager(repo *mockRepository, rec *mockRecognizer, wh *mockWebhookSender) *Manager {
	cfg := &config.Config{
		Env:                      "test",
		DefaultPrimaryLanguage:   "en",
		DefaultSecondaryLanguage: "te",
		DisplayWindowChars:       2000,
		MaxSessionDurationMin:    120,
	}
	return NewManager(cfg, repo, rec, wh, nil)
}

func TestStart_UsesConfiguredDefaultLanguages(t *testing.T) {
	repo := &mockRepository{}
	rec := &mockRecognizer{}
	manager := newTestManager(repo, rec, &mockWebhookSender{})

	handle, err := manager.Start(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = handle.Stop(StopReasonServerClosed) }()

	if len(repo.createCalls) != 1 {
		t.Fatalf("expected one create call, got %d", len(repo.createCalls))
	}
	created := repo.createCalls[0]
	if created.PrimaryLanguage != "en" || created.SecondaryLanguage != "te" {
		t.Fatalf("unexpected languages: %+v", created)
	}
	if created.ID != handle.ID() {
		t.Fatalf("handle id %q does not match created session id %q", handle.ID(), created.ID)
	}
	if rec.langs != (recognizer.LanguagePair{Primary: "en", Secondary: "te"}) {
		t.Fatalf("unexpected recognizer languages: %+v", rec.langs)
	}
}

func TestTokenReceiver_RoutesTokensAndEmitsUpdates(t *testing.T) {
	repo := &mockRepository{}
	rec := &mockRecognizer{}
	manager := newTestManager(repo, rec, &mockWebhookSender{})

	handle, err := manager.Start(context.Background(), "en", "te")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = handle.Stop(StopReasonServerClosed) }()

	rec.receiver.OnTokens([]token.Token{
		{Text: "Hello", SpeakerHint: "A", Language: "en", IsFinal: false},
		{Text: "Hello.", SpeakerHint: "A", Language: "en", IsFinal: true},
		{Text: "   ", IsFinal: true},
	})

	first := <-handle.Updates()
	if first.Final || first.Text != "Hello" {
		t.Fatalf("unexpected first update: %+v", first)
	}
	second := <-handle.Updates()
	if !second.Final || second.Snapshot == nil {
		t.Fatalf("unexpected second update: %+v", second)
	}

	select {
	case u := <-handle.Updates():
		t.Fatalf("dropped token must not produce an update: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStop_FinalizesSessionOnce(t *testing.T) {
	repo := &mockRepository{}
	rec := &mockRecognizer{}
	wh := &mockWebhookSender{}
	manager := newTestManager(repo, rec, wh)

	handle, err := manager.Start(context.Background(), "en", "te")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec.receiver.OnTokens([]token.Token{
		{Text: "Hello.", SpeakerHint: "A", Language: "en", IsFinal: true},
	})

	if err := handle.Stop(StopReasonClientClosed); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}
	// Second stop is a no-op.
	if err := handle.Stop(StopReasonClientClosed); err != nil {
		t.Fatalf("unexpected repeated stop error: %v", err)
	}

	waitUntil(t, time.Second, func() bool { return repo.completeCount() == 1 }, "expected one session completion")
	waitUntil(t, time.Second, func() bool { return wh.count() == 1 }, "expected one webhook delivery")

	repo.mu.Lock()
	completed := repo.completeCalls[0]
	inserted := repo.insertCalls
	repo.mu.Unlock()
	if completed.SessionID != handle.ID() || completed.StopReason != StopReasonClientClosed {
		t.Fatalf("unexpected completion: %+v", completed)
	}
	if completed.EntryCount != 1 {
		t.Fatalf("expected one exported entry, got %d", completed.EntryCount)
	}
	if len(inserted) != 1 || len(inserted[0]) != 1 || inserted[0][0].Text != "Hello." {
		t.Fatalf("unexpected entry inserts: %+v", inserted)
	}
	if !rec.writer.closed {
		t.Fatal("expected recognizer stream writer to be closed")
	}
}

func TestHandle_PushAudioForwardsToStreamWriter(t *testing.T) {
	repo := &mockRepository{}
	rec := &mockRecognizer{}
	manager := newTestManager(repo, rec, &mockWebhookSender{})

	handle, err := manager.Start(context.Background(), "en", "te")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = handle.Stop(StopReasonServerClosed) }()

	if err := handle.PushAudio([]byte{1, 2, 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.writer.writes) != 1 || len(rec.writer.writes[0]) != 3 {
		t.Fatalf("unexpected writes: %+v", rec.writer.writes)
	}
}

func TestStopAllSessions_StopsEveryRunningSession(t *testing.T) {
	repo := &mockRepository{}
	rec := &mockRecognizer{}
	manager := newTestManager(repo, rec, &mockWebhookSender{})

	if _, err := manager.Start(context.Background(), "en", "te"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := manager.Start(context.Background(), "en", "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	manager.StopAllSessions(StopReasonServerClosed)

	manager.mu.Lock()
	remaining := len(manager.sessions)
	manager.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected no running sessions, got %d", remaining)
	}
	waitUntil(t, time.Second, func() bool { return repo.completeCount() == 2 }, "expected both sessions to complete")
}

func TestTakeStopReason_ReturnsAndDeletesReason(t *testing.T) {
	manager := newTestManager(&mockRepository{}, &mockRecognizer{}, &mockWebhookSender{})
	manager.stopReasons["session-1"] = StopReasonMaxDuration

	reason := manager.takeStopReason("session-1")
	if reason != StopReasonMaxDuration {
		t.Fatalf("unexpected reason: %s", reason)
	}

	reason = manager.takeStopReason("session-1")
	if reason == StopReasonMaxDuration {
		t.Fatal("expected reason to be deleted after first read")
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
