package footage_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shortsmith/internal/services"
	"shortsmith/internal/services/footage"
)

const searchBody = `{"videos":[
 {"id":1,"duration":2,"video_files":[{"quality":"hd","file_type":"video/mp4","width":1080,"height":1920,"link":"https://v/too-short.mp4"}]},
 {"id":2,"duration":12,"video_files":[
   {"quality":"sd","file_type":"video/mp4","width":360,"height":640,"link":"https://v/2-sd.mp4"},
   {"quality":"hd","file_type":"video/mp4","width":1080,"height":1920,"link":"https://v/2-hd.mp4"},
   {"quality":"uhd","file_type":"video/mp4","width":2160,"height":3840,"link":"https://v/2-uhd.mp4"}]},
 {"id":3,"duration":8,"video_files":[
   {"quality":"hd","file_type":"video/webm","width":1080,"height":1920,"link":"https://v/3.webm"},
   {"quality":"hd","file_type":"video/mp4","width":720,"height":1280,"link":"https://v/3-720.mp4"}]},
 {"id":4,"duration":30,"video_files":[{"quality":"hd","file_type":"video/mp4","width":1080,"height":1920,"link":"https://v/4.mp4"}]}
]}`

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newServer(t *testing.T, calls *int32, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/videos/search" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "key-123" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		q := r.URL.Query()
		if q.Get("query") != "ocean waves" || q.Get("orientation") != "portrait" || q.Get("per_page") != "15" {
			t.Errorf("query = %v", q)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchPicksClosestRenditions(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, http.StatusOK)
	client := footage.NewClient(footage.Config{BaseURL: srv.URL, APIKey: "key-123", MinClipSeconds: 3})

	clips, err := client.Search(context.Background(), "  ocean\twaves ", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(clips) != 2 {
		t.Fatalf("clips = %+v, want 2", clips)
	}
	if clips[0].URL != "https://v/2-hd.mp4" || clips[0].DurationSec != 12 {
		t.Fatalf("first clip = %+v", clips[0])
	}
	if clips[1].URL != "https://v/3-720.mp4" || clips[1].Width != 720 {
		t.Fatalf("second clip = %+v, want the mp4 rendition", clips[1])
	}
}

func TestSearchUsesCache(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, http.StatusOK)
	cache := newMemoryCache()
	client := footage.NewClient(footage.Config{
		BaseURL:        srv.URL,
		APIKey:         "key-123",
		MinClipSeconds: 3,
		CacheTTL:       time.Hour,
	}, footage.WithCache(cache))
	ctx := context.Background()

	first, err := client.Search(ctx, "ocean waves", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := client.Search(ctx, "Ocean Waves", 1)
	if err != nil {
		t.Fatalf("cached Search: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("service called %d times, want 1", calls)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Fatalf("cached clips = %+v, want %+v", second, first)
	}
	for _, ttl := range cache.ttls {
		if ttl != time.Hour {
			t.Fatalf("cache ttl = %v, want 1h", ttl)
		}
	}
}

func TestSearchClassifiesErrors(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
		{http.StatusUnauthorized, services.ErrValidation},
	}
	for _, tc := range cases {
		var calls int32
		srv := newServer(t, &calls, tc.status)
		client := footage.NewClient(footage.Config{BaseURL: srv.URL, APIKey: "key-123"})
		_, err := client.Search(context.Background(), "ocean waves", 1)
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
	}

	client := footage.NewClient(footage.Config{BaseURL: "http://127.0.0.1:1", APIKey: "k"})
	if _, err := client.Search(context.Background(), "   ", 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("blank term: err = %v, want ErrValidation", err)
	}
}

func TestCircuitOpensOnRepeatedFailures(t *testing.T) {
	var calls int32
	srv := newServer(t, &calls, http.StatusServiceUnavailable)
	client := footage.NewClient(footage.Config{BaseURL: srv.URL, APIKey: "key-123"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = client.Search(ctx, "ocean waves", 1)
	}
	_, err := client.Search(ctx, "ocean waves", 1)
	if !services.Retryable(err) || !strings.Contains(err.Error(), "circuit open") {
		t.Fatalf("err = %v, want open circuit", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("service called %d times, want 3", got)
	}
}

func TestHealthRequiresAPIKey(t *testing.T) {
	if err := footage.NewClient(footage.Config{}).Health(context.Background()); err == nil {
		t.Fatal("expected error without api key")
	}
	if err := footage.NewClient(footage.Config{APIKey: "k"}).Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}
