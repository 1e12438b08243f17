package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"shortsmith/internal/services"
	"shortsmith/internal/services/tts"
	"shortsmith/internal/testsupport"
)

func newClient(t *testing.T, handler http.HandlerFunc) (*tts.Client, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	audioDir := filepath.Join(t.TempDir(), "audio")
	return tts.NewClient(tts.Config{BaseURL: srv.URL, AudioDir: audioDir, DefaultVoice: "Charlotte"}), audioDir
}

func TestSynthesizeJSONResponse(t *testing.T) {
	var got map[string]string
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"audio_url":"https://tts/a.wav","duration_sec":1.2,"words":[{"text":"Hello","start_ms":0,"end_ms":400},{"text":"world","start_ms":500,"end_ms":900}]}`))
	})

	narration, err := client.Synthesize(context.Background(), "\"Hello\nworld\"", "hamilton", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got["text"] != "Hello world" || got["voice"] != "Hamilton" || got["language"] != "en" {
		t.Fatalf("request = %v", got)
	}
	if narration.Audio.URL != "https://tts/a.wav" || narration.Audio.DurationSec != 1.2 {
		t.Fatalf("audio = %+v", narration.Audio)
	}
	if len(narration.Words) != 2 || narration.Words[1].StartMs != 500 {
		t.Fatalf("words = %+v", narration.Words)
	}
}

func TestSynthesizeStoresRawWAV(t *testing.T) {
	client, audioDir := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(testsupport.WAVBytes(2.5, 16000))
	})

	narration, err := client.Synthesize(context.Background(), "one two three", "", "en")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if narration.Audio.DurationSec != 2.5 {
		t.Fatalf("duration = %v, want 2.5", narration.Audio.DurationSec)
	}
	if filepath.Dir(narration.Audio.URL) != audioDir {
		t.Fatalf("audio stored at %s, want under %s", narration.Audio.URL, audioDir)
	}
	if _, err := os.Stat(narration.Audio.URL); err != nil {
		t.Fatalf("stored audio missing: %v", err)
	}
	if len(narration.Words) != 3 {
		t.Fatalf("words = %+v, want 3 estimated", narration.Words)
	}
	if last := narration.Words[2]; last.EndMs != 2500 {
		t.Fatalf("last word ends at %d, want 2500", last.EndMs)
	}
}

func TestSynthesizeRejectsBadVoiceWithoutCalling(t *testing.T) {
	var calls int32
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	ctx := context.Background()

	if _, err := client.Synthesize(ctx, "hi", "Nobody", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("unknown voice: err = %v, want ErrValidation", err)
	}
	if _, err := client.Synthesize(ctx, "hi", "Paulo", "es"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("language mismatch: err = %v, want ErrValidation", err)
	}
	if _, err := client.Synthesize(ctx, "  \"\" ", "Paulo", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty text: err = %v, want ErrValidation", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("service called %d times", calls)
	}
}

func TestSynthesizeClassifiesHTTPErrors(t *testing.T) {
	status := int32(http.StatusServiceUnavailable)
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(atomic.LoadInt32(&status)))
		_, _ = w.Write([]byte(`{"error":"Unknown voice: X"}`))
	})
	ctx := context.Background()

	_, err := client.Synthesize(ctx, "hello", "", "")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("503: err = %v, want ErrTransient", err)
	}

	atomic.StoreInt32(&status, http.StatusBadRequest)
	_, err = client.Synthesize(ctx, "hello", "", "")
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "Unknown voice: X") {
		t.Fatalf("400: err = %v, want ErrValidation with server message", err)
	}
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls int32
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := client.Synthesize(ctx, "hello", "", ""); !services.Retryable(err) {
			t.Fatalf("call %d: err = %v, want retryable", i, err)
		}
	}
	_, err := client.Synthesize(ctx, "hello", "", "")
	if !services.Retryable(err) || !strings.Contains(err.Error(), "circuit open") {
		t.Fatalf("err = %v, want open circuit", err)
	}
	if got := atomic.LoadInt32(&calls); got != 5 {
		t.Fatalf("service called %d times, want 5", got)
	}
}

func TestVoicesAndHealth(t *testing.T) {
	client, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/voices":
			_, _ = w.Write([]byte(`{"voices":{"Pilar":{"engine":"xtts","language":"es","gender":"female"},"Charlotte":{"engine":"chatterbox","language":"en","gender":"female"}},"total_voices":2}`))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	voices, err := client.Voices(ctx)
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 2 || voices[0].Name != "Charlotte" || voices[1].Name != "Pilar" || voices[1].Engine != "xtts" {
		t.Fatalf("voices = %+v", voices)
	}
	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestCatalogLookup(t *testing.T) {
	if v, ok := tts.LookupVoice("  INES "); !ok || v.Language != "pt" {
		t.Fatalf("LookupVoice(INES) = %+v, %v", v, ok)
	}
	if v, ok := tts.VoiceForLanguage("pt-BR"); !ok || v.Language != "pt" {
		t.Fatalf("VoiceForLanguage(pt-BR) = %+v, %v", v, ok)
	}
	if got := len(tts.Catalog()); got != 6 {
		t.Fatalf("catalog has %d voices, want 6", got)
	}
}
