package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stevemurr/simple-data-server/handler"
	"github.com/stevemurr/simple-data-server/logger"
	"github.com/stevemurr/simple-data-server/metrics"
	"github.com/stevemurr/simple-data-server/service"
	"github.com/stevemurr/simple-data-server/store"
)

func newServer(s store.Store, opts handler.Options) *httptest.Server {
	m := metrics.New()
	svc := service.New(s, logger.NewNop(), m)
	return httptest.NewServer(handler.New(svc, logger.NewNop(), m, opts))
}

func setup(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ts := newServer(s, handler.Options{})
	t.Cleanup(ts.Close)
	return ts, dir
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func save(t *testing.T, ts *httptest.Server, body []byte) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/save-data", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp, decodeJSON(t, resp.Body)
}

func load(t *testing.T, ts *httptest.Server, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp, decodeJSON(t, resp.Body)
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := setup(t)

	resp, body := load(t, ts, "/")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}

	resp, body = load(t, ts, "/health")
	if resp.StatusCode != 200 || body["status"] != "healthy" {
		t.Fatalf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestSaveAndLoadSingle(t *testing.T) {
	ts, dir := setup(t)

	games := []any{
		map[string]any{"id": float64(1), "name": "아이온2", "image": "img/아이온.jpg"},
		map[string]any{"id": float64(2), "name": "리니지2"},
	}
	resp, body := save(t, ts, mustJSON(t, map[string]any{"type": "games", "data": games}))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if !reflect.DeepEqual(body["files"], []any{"games"}) {
		t.Fatalf("expected files=[games], got %v", body["files"])
	}
	ts1, _ := body["timestamp"].(string)
	if _, err := time.ParseInLocation("2006-01-02 15:04:05", ts1, time.Local); err != nil {
		t.Fatalf("unexpected timestamp %q: %v", ts1, err)
	}

	if _, err := os.Stat(filepath.Join(dir, "games.json")); err != nil {
		t.Fatalf("expected games.json: %v", err)
	}

	resp, body = load(t, ts, "/api/load-data/games")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !reflect.DeepEqual(body["data"], any(games)) {
		t.Fatalf("round trip mismatch: %v", body["data"])
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Fatal("expected timestamp")
	}
}

func TestLoadMissingCollection(t *testing.T) {
	ts, _ := setup(t)

	for _, name := range []string{"users", "games", "products", "servers"} {
		resp, body := load(t, ts, "/api/load-data/"+name)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: expected 200, got %d", name, resp.StatusCode)
		}
		if !reflect.DeepEqual(body["data"], []any{}) {
			t.Fatalf("%s: expected [], got %v", name, body["data"])
		}
	}
}

func TestSaveAllDefaultsAndOrder(t *testing.T) {
	ts, dir := setup(t)

	resp, body := save(t, ts, []byte(`{"type":"all","data":{"users":[1],"games":[2]}}`))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	wantFiles := []any{"users", "games", "products", "servers"}
	if !reflect.DeepEqual(body["files"], wantFiles) {
		t.Fatalf("expected files %v, got %v", wantFiles, body["files"])
	}

	for name, want := range map[string]string{
		"users.json":    "[\n  1\n]",
		"games.json":    "[\n  2\n]",
		"products.json": "[]",
		"servers.json":  "[]",
	} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != want {
			t.Fatalf("%s: expected %q, got %q", name, want, b)
		}
	}

	resp, body = load(t, ts, "/api/load-data/all")
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	want := map[string]any{
		"users":    []any{float64(1)},
		"games":    []any{float64(2)},
		"products": []any{},
		"servers":  []any{},
	}
	if !reflect.DeepEqual(body["data"], any(want)) {
		t.Fatalf("expected %v, got %v", want, body["data"])
	}
}

func TestLoadWithoutTypeIsAll(t *testing.T) {
	ts, _ := setup(t)
	save(t, ts, []byte(`{"type":"servers","data":[{"id":1,"name":"天启[天族]"}]}`))

	_, all := load(t, ts, "/api/load-data/all")
	for _, path := range []string{"/api/load-data", "/api/load-data/"} {
		resp, body := load(t, ts, path)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if !reflect.DeepEqual(body["data"], all["data"]) {
			t.Fatalf("%s: expected %v, got %v", path, all["data"], body["data"])
		}
	}
}

func TestSaveRejections(t *testing.T) {
	ts, dir := setup(t)
	save(t, ts, []byte(`{"type":"users","data":["original"]}`))

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed", `{"type":"users","data":`, "invalid JSON format"},
		{"empty", ``, "invalid JSON format"},
		{"missing data", `{"type":"users"}`, "missing required parameters"},
		{"missing type", `{"data":[]}`, "missing required parameters"},
		{"invalid type", `{"type":"orders","data":[]}`, "invalid data type"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := save(t, ts, []byte(tc.body))
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if body["success"] != false {
				t.Fatalf("expected success=false, got %v", body)
			}
			if body["message"] != tc.msg {
				t.Fatalf("expected message %q, got %v", tc.msg, body["message"])
			}
			if _, ok := body["error"]; ok {
				t.Fatalf("client errors carry no error field: %v", body)
			}
		})
	}

	if got := dirEntries(t, dir); !reflect.DeepEqual(got, []string{"users.json"}) {
		t.Fatalf("expected no new files, got %v", got)
	}
	_, body := load(t, ts, "/api/load-data/users")
	if !reflect.DeepEqual(body["data"], []any{"original"}) {
		t.Fatalf("expected users unchanged, got %v", body["data"])
	}
}

func TestLoadInvalidType(t *testing.T) {
	ts, _ := setup(t)

	resp, body := load(t, ts, "/api/load-data/orders")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body["success"] != false || body["message"] != "invalid data type" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestSequentialSavesLastWins(t *testing.T) {
	ts, _ := setup(t)

	save(t, ts, []byte(`{"type":"products","data":[{"id":1,"price":899}]}`))
	save(t, ts, []byte(`{"type":"products","data":[{"id":2,"price":320}]}`))

	_, body := load(t, ts, "/api/load-data/products")
	want := []any{map[string]any{"id": float64(2), "price": float64(320)}}
	if !reflect.DeepEqual(body["data"], any(want)) {
		t.Fatalf("expected %v, got %v", want, body["data"])
	}
}

func TestLoadCorruptFile(t *testing.T) {
	ts, dir := setup(t)
	if err := os.WriteFile(filepath.Join(dir, "users.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/api/load-data/users", "/api/load-data"} {
		resp, body := load(t, ts, path)
		if resp.StatusCode != 500 {
			t.Fatalf("%s: expected 500, got %d", path, resp.StatusCode)
		}
		if body["success"] != false {
			t.Fatalf("%s: expected success=false", path)
		}
		errText, _ := body["error"].(string)
		if !strings.Contains(errText, "not valid JSON") {
			t.Fatalf("%s: expected underlying error, got %v", path, body["error"])
		}
		msg, _ := body["message"].(string)
		if !strings.HasPrefix(msg, "failed to load data") {
			t.Fatalf("%s: unexpected message %q", path, msg)
		}
	}
}

// brokenStore fails every write after the first n succeed.
type brokenStore struct {
	store.Store
	n int
}

func (b *brokenStore) Write(collection string, doc json.RawMessage) error {
	if b.n <= 0 {
		return errors.New("no space left on device")
	}
	b.n--
	return b.Store.Write(collection, doc)
}

func TestSaveStorageFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	ts := newServer(&brokenStore{Store: mem, n: 1}, handler.Options{})
	defer ts.Close()

	resp, body := save(t, ts, []byte(`{"type":"all","data":{"users":["u"],"games":["g"]}}`))
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if body["success"] != false || body["error"] != "no space left on device" {
		t.Fatalf("unexpected body %v", body)
	}

	users, _ := mem.Read("users")
	games, _ := mem.Read("games")
	if !strings.Contains(string(users), `"u"`) {
		t.Fatalf("expected users written before failure, got %s", users)
	}
	if string(games) != "[]" {
		t.Fatalf("expected games untouched, got %s", games)
	}
}

func TestStaticFiles(t *testing.T) {
	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log('shop')"), 0o644); err != nil {
		t.Fatal(err)
	}
	ts := newServer(store.NewMemoryStore(), handler.Options{StaticDir: static})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/app.js")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != 200 || string(b) != "console.log('shop')" {
		t.Fatalf("unexpected static response %d %q", resp.StatusCode, b)
	}

	resp, err = http.Get(ts.URL + "/missing.js")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// API routes still take precedence.
	resp, body := load(t, ts, "/api/load-data/users")
	if resp.StatusCode != 200 || body["success"] != true {
		t.Fatalf("unexpected API response %d %v", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newServer(store.NewMemoryStore(), handler.Options{ExposeMetrics: true})
	defer ts.Close()

	save(t, ts, []byte(`{"type":"users","data":[]}`))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), `collection_writes_total{collection="users",result="ok"} 1`) {
		t.Fatalf("expected write counter, got:\n%s", b)
	}
}
