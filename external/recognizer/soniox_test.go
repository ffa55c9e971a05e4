package recognizer

import (
	"testing"

	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/token"
)

func TestBuildSonioxRequest_TranslationMode(t *testing.T) {
	req := buildSonioxRequest("key", "stt-rt-v3", "session-1", recognizer.LanguagePair{Primary: "en", Secondary: "te"})

	if req.APIKey != "key" || req.Model != "stt-rt-v3" {
		t.Fatalf("unexpected credentials: %+v", req)
	}
	if req.AudioFormat != "pcm_s16le" || req.SampleRate != 16000 || req.NumChannels != 1 {
		t.Fatalf("unexpected audio format: %+v", req)
	}
	if req.Translation == nil || req.Translation.Type != "two_way" {
		t.Fatalf("expected two_way translation config: %+v", req.Translation)
	}
	if req.Translation.LanguageA != "en" || req.Translation.LanguageB != "te" {
		t.Fatalf("unexpected translation languages: %+v", req.Translation)
	}
	if len(req.LanguageHints) != 2 {
		t.Fatalf("unexpected language hints: %+v", req.LanguageHints)
	}
	if !req.EnableSpeakerDiarization || !req.EnableLanguageIdentification {
		t.Fatalf("diarization and language identification must be on: %+v", req)
	}
}

func TestBuildSonioxRequest_SameLanguageOmitsTranslation(t *testing.T) {
	req := buildSonioxRequest("key", "stt-rt-v3", "session-1", recognizer.LanguagePair{Primary: "en", Secondary: "en"})
	if req.Translation != nil {
		t.Fatalf("same-language stream must not request translation: %+v", req.Translation)
	}
	if len(req.LanguageHints) != 1 || req.LanguageHints[0] != "en" {
		t.Fatalf("unexpected language hints: %+v", req.LanguageHints)
	}
}

func TestParseSonioxResponse(t *testing.T) {
	resp, ok := parseSonioxResponse([]byte(`{"tokens":[{"text":"Hello","is_final":true,"speaker":"1","language":"en","translation_status":"original"}],"finished":false}`))
	if !ok {
		t.Fatal("expected response to parse")
	}
	if len(resp.Tokens) != 1 || resp.Tokens[0].Text != "Hello" {
		t.Fatalf("unexpected tokens: %+v", resp.Tokens)
	}

	if _, ok := parseSonioxResponse([]byte(`not json`)); ok {
		t.Fatal("expected malformed message to be rejected")
	}
}

func TestParseSonioxResponse_Error(t *testing.T) {
	resp, ok := parseSonioxResponse([]byte(`{"error_code":401,"error_message":"invalid api key"}`))
	if !ok || resp.ErrorCode == nil || *resp.ErrorCode != 401 {
		t.Fatalf("unexpected error response: %+v", resp)
	}
}

func TestMapSonioxTokens(t *testing.T) {
	mapped := mapSonioxTokens([]sonioxToken{
		{Text: "Hello", IsFinal: true, Speaker: "1", Language: "en", TranslationStatus: "original"},
		{Text: "నమస్కారం", IsFinal: true, Speaker: "1", Language: "te", TranslationStatus: "translation"},
		{Text: "part", IsFinal: false},
		{Text: ""},
	})

	if len(mapped) != 3 {
		t.Fatalf("expected empty-text tokens to be skipped, got %d", len(mapped))
	}
	if mapped[0].Status != token.StatusOriginal || mapped[0].SpeakerHint != "1" {
		t.Fatalf("unexpected first token: %+v", mapped[0])
	}
	if mapped[1].Status != token.StatusTranslation || mapped[1].Language != "te" {
		t.Fatalf("unexpected second token: %+v", mapped[1])
	}
	if mapped[2].Status != token.StatusNone || mapped[2].IsFinal {
		t.Fatalf("unexpected third token: %+v", mapped[2])
	}
}
