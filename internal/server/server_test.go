package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/zh1zunbao/makritup/internal/config"
	"github.com/zh1zunbao/makritup/internal/ooxml/ziptest"
)

func newTestServer(c *qt.C) (*httptest.Server, *config.Store) {
	store := config.NewStore(config.Default())
	srv := httptest.NewServer(New(store, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler())
	c.Cleanup(srv.Close)
	return srv, store
}

func do(c *qt.C, method, url, body string) (*http.Response, string) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	c.Assert(err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp, string(data)
}

func TestHealthz(t *testing.T) {
	c := qt.New(t)
	srv, _ := newTestServer(c)

	resp, _ := do(c, http.MethodGet, srv.URL+"/healthz", "")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)
}

func TestConvert(t *testing.T) {
	c := qt.New(t)
	srv, _ := newTestServer(c)

	resp, body := do(c, http.MethodPost, srv.URL+"/convert?filename=t.csv", "a,b\n1,2\n")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(resp.Header.Get("Content-Type"), qt.Equals, "text/markdown; charset=utf-8")
	c.Assert(body, qt.Equals, "| a | b |\n|---|---|\n| 1 | 2 |\n")
}

func TestConvertErrorStatus(t *testing.T) {
	c := qt.New(t)
	srv, store := newTestServer(c)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
	}{
		{"empty", "", "", http.StatusBadRequest},
		{"unsupported", "", "plain words only", http.StatusUnsupportedMediaType},
		{"broken docx", "?filename=x.docx", string(ziptest.Build(t, ziptest.File("readme.txt", "hi"))), http.StatusUnprocessableEntity},
	}
	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			resp, body := do(c, http.MethodPost, srv.URL+"/convert"+test.query, test.body)
			c.Assert(resp.StatusCode, qt.Equals, test.status)
			c.Assert(body, qt.Contains, `"error"`)
		})
	}

	_, err := store.Update(func(cfg *config.Config) { cfg.MaxFileSize = 3 })
	c.Assert(err, qt.IsNil)
	resp, _ := do(c, http.MethodPost, srv.URL+"/convert?filename=t.csv", "a,b\n1,2\n")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusRequestEntityTooLarge)
}

func TestConfigRoundTrip(t *testing.T) {
	c := qt.New(t)
	srv, store := newTestServer(c)

	resp, body := do(c, http.MethodPut, srv.URL+"/config", `{"speech_model":"whisper-1","ai":{"api_key":"k"}}`)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	var got config.Config
	c.Assert(json.Unmarshal([]byte(body), &got), qt.IsNil)
	c.Assert(got.SpeechModel, qt.Equals, "whisper-1")
	c.Assert(got.AI.APIKey, qt.Equals, "********")
	c.Assert(store.Snapshot().AI.APIKey, qt.Equals, "k")
	c.Assert(store.Snapshot().Workers, qt.Equals, config.Default().Workers)

	resp, body = do(c, http.MethodGet, srv.URL+"/config", "")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, `"speech_model":"whisper-1"`)
	c.Assert(body, qt.Not(qt.Contains), `"k"`)

	resp, _ = do(c, http.MethodPut, srv.URL+"/config", `{"image_naming":"sometimes"}`)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(store.Snapshot().ImageNaming, qt.Equals, config.NamingTimestamp)

	resp, _ = do(c, http.MethodPut, srv.URL+"/config", `{"unknown":1}`)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
}

func TestEndpointChangeNeedsKey(t *testing.T) {
	c := qt.New(t)
	srv, store := newTestServer(c)

	var hits atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			hits.Add(1)
		}
		http.Error(w, "no", http.StatusTeapot)
	}))
	c.Cleanup(collector.Close)

	_, err := store.Update(func(cfg *config.Config) {
		cfg.AI.APIKey = "sk-secret"
		cfg.AI.Model = "vision"
	})
	c.Assert(err, qt.IsNil)
	endpoint := store.Snapshot().AI.Endpoint

	resp, body := do(c, http.MethodPut, srv.URL+"/config",
		`{"image_naming":"ai","ai":{"endpoint":"`+collector.URL+`"}}`)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(body, qt.Contains, "ai.api_key")
	c.Assert(store.Snapshot().AI.Endpoint, qt.Equals, endpoint)
	c.Assert(store.Snapshot().ImageNaming, qt.Equals, config.NamingTimestamp)

	resp, _ = do(c, http.MethodPost, srv.URL+"/convert?filename=x.png", string(ziptest.PNG))
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(hits.Load(), qt.Equals, int32(0))

	resp, _ = do(c, http.MethodPut, srv.URL+"/config",
		`{"ai":{"endpoint":"https://llm.internal/v1","api_key":"sk-other"}}`)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(store.Snapshot().AI.Endpoint, qt.Equals, "https://llm.internal/v1")
	c.Assert(store.Snapshot().AI.APIKey, qt.Equals, "sk-other")
}

func TestImageDirIsNotSettable(t *testing.T) {
	c := qt.New(t)
	srv, store := newTestServer(c)

	resp, _ := do(c, http.MethodPut, srv.URL+"/config", `{"image_dir":"/etc"}`)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(store.Snapshot().ImageDir, qt.Equals, "")
}
