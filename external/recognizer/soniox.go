// Package recognizer implements the speech recognition backends. The Soniox
// backend streams over the Soniox real-time WebSocket API and supports
// bidirectional translation; the Cloud Speech backend covers same-language
// sessions via the Google Cloud Speech-to-Text v2 streaming API.
package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/token"
)

const (
	sonioxEndpoint    = "wss://stt-rt.soniox.com/transcribe-websocket"
	sonioxAudioFormat = "pcm_s16le"
	sonioxSampleRate  = 16000
	sonioxNumChannels = 1
)

type SonioxConfig struct {
	APIKey string
	Model  string
}

type SonioxRecognizer struct {
	apiKey string
	model  string
}

func NewSonioxRecognizer(cfg SonioxConfig) recognizer.Recognizer {
	return &SonioxRecognizer{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

type sonioxTranslation struct {
	Type      string `json:"type"`
	LanguageA string `json:"language_a,omitempty"`
	LanguageB string `json:"language_b,omitempty"`
}

type sonioxRequest struct {
	APIKey                       string             `json:"api_key"`
	Model                        string             `json:"model"`
	AudioFormat                  string             `json:"audio_format"`
	SampleRate                   int                `json:"sample_rate"`
	NumChannels                  int                `json:"num_channels"`
	LanguageHints                []string           `json:"language_hints,omitempty"`
	EnableSpeakerDiarization     bool               `json:"enable_speaker_diarization,omitempty"`
	EnableLanguageIdentification bool               `json:"enable_language_identification,omitempty"`
	EnableEndpointDetection      bool               `json:"enable_endpoint_detection,omitempty"`
	ClientReferenceID            string             `json:"client_reference_id,omitempty"`
	Translation                  *sonioxTranslation `json:"translation,omitempty"`
}

type sonioxToken struct {
	Text              string `json:"text"`
	IsFinal           bool   `json:"is_final"`
	Speaker           string `json:"speaker,omitempty"`
	Language          string `json:"language,omitempty"`
	TranslationStatus string `json:"translation_status,omitempty"`
}

type sonioxResponse struct {
	Tokens       []sonioxToken `json:"tokens"`
	Finished     bool          `json:"finished,omitempty"`
	ErrorCode    *int          `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

func (r *SonioxRecognizer) StartStreaming(ctx context.Context, sessionID string, langs recognizer.LanguagePair, receiver recognizer.ResultReceiver) (recognizer.StreamWriter, error) {
	slog.Info("starting soniox streaming", "session_id", sessionID, "model", r.model,
		"primary_language", langs.Primary, "secondary_language", langs.Secondary)

	conn, _, err := websocket.Dial(ctx, sonioxEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("soniox dial: %w", err)
	}

	if err := wsjson.Write(ctx, conn, buildSonioxRequest(r.apiKey, r.model, sessionID, langs)); err != nil {
		conn.Close(websocket.StatusInternalError, "config send failed")
		return nil, fmt.Errorf("soniox send config: %w", err)
	}
	slog.Info("soniox stream initialized", "session_id", sessionID)

	w := &sonioxStreamWriter{ctx: ctx, conn: conn}
	go readLoop(ctx, sessionID, conn, receiver)
	return w, nil
}

func buildSonioxRequest(apiKey, model, sessionID string, langs recognizer.LanguagePair) sonioxRequest {
	req := sonioxRequest{
		APIKey:                       apiKey,
		Model:                        model,
		AudioFormat:                  sonioxAudioFormat,
		SampleRate:                   sonioxSampleRate,
		NumChannels:                  sonioxNumChannels,
		LanguageHints:                languageHints(langs),
		EnableSpeakerDiarization:     true,
		EnableLanguageIdentification: true,
		EnableEndpointDetection:      true,
		ClientReferenceID:            sessionID,
	}
	if !langs.SameLanguage() {
		req.Translation = &sonioxTranslation{
			Type:      "two_way",
			LanguageA: langs.Primary,
			LanguageB: langs.Secondary,
		}
	}
	return req
}

func languageHints(langs recognizer.LanguagePair) []string {
	if langs.SameLanguage() {
		return []string{langs.Primary}
	}
	return []string{langs.Primary, langs.Secondary}
}

func readLoop(ctx context.Context, sessionID string, conn *websocket.Conn, receiver recognizer.ResultReceiver) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || ctx.Err() != nil {
				slog.Info("soniox read loop stopped", "session_id", sessionID)
				return
			}
			receiver.OnError(err)
			return
		}

		resp, ok := parseSonioxResponse(data)
		if !ok {
			continue
		}
		if resp.ErrorCode != nil {
			receiver.OnError(fmt.Errorf("soniox error %d: %s", *resp.ErrorCode, resp.ErrorMessage))
			return
		}
		if tokens := mapSonioxTokens(resp.Tokens); len(tokens) > 0 {
			receiver.OnTokens(tokens)
		}
		if resp.Finished {
			slog.Info("soniox stream finished", "session_id", sessionID)
			return
		}
	}
}

func parseSonioxResponse(data []byte) (sonioxResponse, bool) {
	var resp sonioxResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return sonioxResponse{}, false
	}
	return resp, true
}

func mapSonioxTokens(raw []sonioxToken) []token.Token {
	out := make([]token.Token, 0, len(raw))
	for _, rt := range raw {
		if rt.Text == "" {
			continue
		}
		out = append(out, token.Token{
			Text:        rt.Text,
			SpeakerHint: rt.Speaker,
			Language:    rt.Language,
			Status:      mapTranslationStatus(rt.TranslationStatus),
			IsFinal:     rt.IsFinal,
		})
	}
	return out
}

func mapTranslationStatus(s string) token.TranslationStatus {
	switch s {
	case "original":
		return token.StatusOriginal
	case "translation":
		return token.StatusTranslation
	default:
		return token.StatusNone
	}
}

type sonioxStreamWriter struct {
	ctx  context.Context
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (w *sonioxStreamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	return w.conn.Write(w.ctx, websocket.MessageBinary, pcm)
}

// Close sends the empty binary end-of-audio marker so the backend finalizes
// remaining tokens, then closes the connection.
func (w *sonioxStreamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.conn.Write(w.ctx, websocket.MessageBinary, nil)
	return w.conn.Close(websocket.StatusNormalClosure, "end of audio")
}
