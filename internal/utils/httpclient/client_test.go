package httpclient

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func noSleepClient(retries int) *http.Client {
	logger := testLogger()
	base := &compressedTransport{transport: &http.Transport{DisableCompression: true}, logger: logger}
	return &http.Client{
		Timeout:   5 * time.Second,
		Transport: &retryTransport{next: base, retries: retries, logger: logger, sleep: func(context.Context, time.Duration) error { return nil }},
	}
}

func TestCompressedTransportDecodesBrotliAndGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			bw := brotli.NewWriter(w)
			_, _ = bw.Write([]byte("brotli body"))
			_ = bw.Close()
		case "/gz":
			w.Header().Set("Content-Encoding", "gzip")
			gw := gzip.NewWriter(w)
			_, _ = gw.Write([]byte("gzip body"))
			_ = gw.Close()
		}
	}))
	defer srv.Close()

	client := noSleepClient(0)
	for path, want := range map[string]string{"/br": "brotli body", "/gz": "gzip body"} {
		resp, err := client.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if string(body) != want {
			t.Fatalf("%s: expected %q, got %q", path, want, body)
		}
	}
}

func TestRetryTransportRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	resp, err := noSleepClient(2).Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retries, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestRetryTransportStopsAtLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	resp, err := noSleepClient(1).Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	statusErr := CheckStatus(resp)
	var se *StatusError
	if !errors.As(statusErr, &se) || se.StatusCode != http.StatusTooManyRequests || !se.Retryable {
		t.Fatalf("expected retryable 429 StatusError, got %v", statusErr)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestCompressedTransportLeavesCallerHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept-Encoding") != "gzip, br" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := noSleepClient(0).Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("server did not see Accept-Encoding, status %d", resp.StatusCode)
	}
	if got := req.Header.Get("Accept-Encoding"); got != "" {
		t.Fatalf("caller request mutated: Accept-Encoding=%q", got)
	}
}

func TestRetryTransportWaitHonoursContext(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger := testLogger()
	client := &http.Client{Transport: &retryTransport{
		next:    &compressedTransport{transport: &http.Transport{DisableCompression: true}, logger: logger},
		retries: 3,
		logger:  logger,
		sleep:   sleepCtx,
	}}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("retry wait ignored cancellation, took %s", elapsed)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", n)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Fatalf("expected 3s, got %s", got)
	}
	if got := parseRetryAfter("600"); got != maxRetryWait {
		t.Fatalf("expected cap %s, got %s", maxRetryWait, got)
	}
	if got := parseRetryAfter("garbage"); got != 0 {
		t.Fatalf("expected 0, got %s", got)
	}
}
