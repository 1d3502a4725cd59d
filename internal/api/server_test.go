package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mindmorass/clipdeck/internal/augment"
	"github.com/mindmorass/clipdeck/internal/capture"
	"github.com/mindmorass/clipdeck/internal/clipboard"
	"github.com/mindmorass/clipdeck/internal/item"
	"github.com/mindmorass/clipdeck/internal/library"
	"github.com/mindmorass/clipdeck/internal/store"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	reply func(req augment.Request) (string, error)
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, req augment.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.reply == nil {
		return "", errors.New("no reply configured")
	}
	return f.reply(req)
}

type fakeCopier struct {
	items []string
	texts []string
}

func (f *fakeCopier) CopyToClipboard(it *item.ClipboardItem) error {
	f.items = append(f.items, it.ID)
	return nil
}

func (f *fakeCopier) CopyText(text string) error {
	f.texts = append(f.texts, text)
	return nil
}

func newTestServer(t *testing.T, gen *fakeGenerator, copier Copier) (*Server, *library.Service) {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	var ai *augment.Client
	if gen != nil {
		ai = augment.New(augment.Config{APIKey: "test"}, gen, zap.NewNop())
	}
	svc := library.New(st, ai, library.Options{})
	t.Cleanup(svc.Close)
	return New(svc, Options{Copier: copier}), svc
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthReportsConfiguration(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" || resp.Configured || resp.Provider != "" || resp.Items != 0 {
		t.Fatalf("unexpected health %+v", resp)
	}
}

func TestItemLifecycle(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodPost, "/items", `{"content":"https://go.dev","tags":["docs"," docs "]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created item.ClipboardItem
	decodeBody(t, rec, &created)
	if created.Type != item.TypeLink || len(created.Tags) != 1 || created.ID == "" {
		t.Fatalf("unexpected item %+v", created)
	}

	rec = do(t, s, http.MethodGet, "/items/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodPatch, "/items/"+created.ID, `{"content":"https://pkg.go.dev"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated item.ClipboardItem
	decodeBody(t, rec, &updated)
	if updated.Content != "https://pkg.go.dev" || updated.Preview != created.Preview {
		t.Fatalf("unexpected update %+v", updated)
	}

	rec = do(t, s, http.MethodPut, "/items/"+created.ID+"/tags", `{"tags":["b","a","b"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var tags tagsResponse
	decodeBody(t, rec, &tags)
	if strings.Join(tags.Tags, ",") != "b,a" {
		t.Fatalf("unexpected tags %v", tags.Tags)
	}

	rec = do(t, s, http.MethodDelete, "/items/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/items/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAddItemRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"content":`, http.StatusBadRequest},
		{"empty content", `{"content":"  "}`, http.StatusBadRequest},
		{"unknown type", `{"type":"video","content":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/items", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			var resp map[string]string
			decodeBody(t, rec, &resp)
			if resp["error"] == "" {
				t.Fatal("expected error message")
			}
		})
	}
}

func TestListItemsFilters(t *testing.T) {
	s, svc := newTestServer(t, nil, nil)
	ctx := context.Background()

	for _, req := range []library.AddRequest{
		{Type: item.TypeText, Content: "groceries", Tags: []string{"home"}},
		{Type: item.TypeLink, Content: "https://go.dev"},
		{Type: item.TypeText, Content: "meeting notes"},
	} {
		if _, err := svc.Add(ctx, req); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"type", "?type=text", 2},
		{"tag", "?tag=home", 1},
		{"query", "?q=notes", 1},
		{"limit", "?limit=1", 1},
		{"offset", "?offset=2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/items"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var items []item.ClipboardItem
			decodeBody(t, rec, &items)
			if len(items) != tt.want {
				t.Fatalf("expected %d items, got %d", tt.want, len(items))
			}
		})
	}

	for _, bad := range []string{"?type=video", "?limit=x", "?offset=-1"} {
		if rec := do(t, s, http.MethodGet, "/items"+bad, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	for _, path := range []string{"/items", "/tags", "/templates"} {
		rec := do(t, s, http.MethodGet, path, "")
		if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
			t.Fatalf("%s: expected [], got %q", path, got)
		}
	}
}

func TestTagsAndTemplates(t *testing.T) {
	copier := &fakeCopier{}
	s, svc := newTestServer(t, nil, copier)
	ctx := context.Background()

	if _, err := svc.Add(ctx, library.AddRequest{Content: "a", Tags: []string{"x", "y"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := svc.Add(ctx, library.AddRequest{Content: "b", Tags: []string{"y"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var tags []item.Tag
	decodeBody(t, do(t, s, http.MethodGet, "/tags", ""), &tags)
	if len(tags) != 2 || tags[0].Name != "y" || tags[0].Count != 2 {
		t.Fatalf("unexpected tags %+v", tags)
	}

	rec := do(t, s, http.MethodPost, "/templates", `{"name":"sig","content":"Regards"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tpl item.Template
	decodeBody(t, rec, &tpl)

	if rec := do(t, s, http.MethodPost, "/templates", `{"name":" ","content":"x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", rec.Code)
	}

	if rec := do(t, s, http.MethodPost, "/templates/"+tpl.ID+"/copy", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(copier.texts) != 1 || copier.texts[0] != "Regards" {
		t.Fatalf("unexpected copies %v", copier.texts)
	}

	if rec := do(t, s, http.MethodDelete, "/templates/"+tpl.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/templates/"+tpl.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCopyItem(t *testing.T) {
	copier := &fakeCopier{}
	s, svc := newTestServer(t, nil, copier)

	it, err := svc.Add(context.Background(), library.AddRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec := do(t, s, http.MethodPost, "/items/"+it.ID+"/copy", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(copier.items) != 1 || copier.items[0] != it.ID {
		t.Fatalf("unexpected copies %v", copier.items)
	}
	if rec := do(t, s, http.MethodPost, "/items/missing/copy", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	headless, _ := newTestServer(t, nil, nil)
	if rec := do(t, headless, http.MethodPost, "/items/"+it.ID+"/copy", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}

// noPasteboard behaves like the system clipboard on platforms without one
type noPasteboard struct{}

func (noPasteboard) ChangeCount() int                       { return 0 }
func (noPasteboard) Read() (*clipboard.Content, error)      { return nil, clipboard.ErrUnsupported }
func (noPasteboard) Write(content *clipboard.Content) error { return clipboard.ErrUnsupported }

func TestCopyWithoutPasteboardIsNotImplemented(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	svc := library.New(st, nil, library.Options{})
	t.Cleanup(svc.Close)
	s := New(svc, Options{Copier: capture.NewEngine(svc, noPasteboard{}, 0, nil)})

	it, err := svc.Add(context.Background(), library.AddRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec := do(t, s, http.MethodPost, "/items/"+it.ID+"/copy", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 for item copy, got %d: %s", rec.Code, rec.Body.String())
	}

	tpl, err := svc.AddTemplate(context.Background(), "greeting", "hi there")
	if err != nil {
		t.Fatalf("AddTemplate: %v", err)
	}
	if rec := do(t, s, http.MethodPost, "/templates/"+tpl.ID+"/copy", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 for template copy, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEnrichCodeItem(t *testing.T) {
	gen := &fakeGenerator{reply: func(req augment.Request) (string, error) {
		return `{"language":"go","isSensitive":true}`, nil
	}}
	s, svc := newTestServer(t, gen, nil)

	it, err := svc.Add(context.Background(), library.AddRequest{Type: item.TypeCode, Content: `key := "sk-123"`})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec := do(t, s, http.MethodPost, "/items/"+it.ID+"/enrich", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res library.EnrichResult
	decodeBody(t, rec, &res)
	if !res.Applied || res.Status != augment.StatusSucceeded {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Item.Metadata == nil || res.Item.Metadata.Language != "go" || !res.Item.Metadata.Sensitive() {
		t.Fatalf("metadata not merged: %+v", res.Item.Metadata)
	}
	if res.Item.Content != it.Content || res.Item.CreatedAt != it.CreatedAt {
		t.Fatal("enrichment changed immutable fields")
	}

	text, err := svc.Add(context.Background(), library.AddRequest{Type: item.TypeText, Content: "plain"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec := do(t, s, http.MethodPost, "/items/"+text.ID+"/enrich", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestFormatAndTranslateItem(t *testing.T) {
	gen := &fakeGenerator{reply: func(req augment.Request) (string, error) {
		if strings.Contains(req.Prompt, "French") {
			return "bonjour", nil
		}
		return "```python\nprint(1)\n```", nil
	}}
	s, svc := newTestServer(t, gen, nil)

	it, err := svc.Add(context.Background(), library.AddRequest{Type: item.TypeCode, Content: "print( 1 )"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	rec := do(t, s, http.MethodPost, "/items/"+it.ID+"/format", "")
	var preview library.TextResult
	decodeBody(t, rec, &preview)
	if preview.Applied || preview.Result.Text != "print(1)" || preview.Item.Content != "print( 1 )" {
		t.Fatalf("unexpected preview %+v", preview)
	}

	rec = do(t, s, http.MethodPost, "/items/"+it.ID+"/format", `{"apply":true}`)
	var applied library.TextResult
	decodeBody(t, rec, &applied)
	if !applied.Applied || applied.Item.Content != "print(1)" {
		t.Fatalf("unexpected apply %+v", applied)
	}

	if rec := do(t, s, http.MethodPost, "/items/"+it.ID+"/translate", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/items/"+it.ID+"/translate", `{"targetLanguage":"fr"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var translated library.TextResult
	decodeBody(t, rec, &translated)
	if translated.Result.Text != "bonjour" || translated.Item.Metadata == nil || translated.Item.Metadata.Translation != "bonjour" {
		t.Fatalf("unexpected translation %+v", translated)
	}
}

func TestAugmentEndpointsReturnFallbacksWhenNotConfigured(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodPost, "/augment/translate", `{"text":"hello","targetLanguage":"fr"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res augment.TextResult
	decodeBody(t, rec, &res)
	if res.Text != augment.FallbackNotConfigured || res.Status != augment.StatusDegraded || res.Cause != augment.CauseNotConfigured {
		t.Fatalf("unexpected result %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/augment/format", `{"code":"x=1","language":"python"}`)
	decodeBody(t, rec, &res)
	if res.Text != "x=1" || !res.Degraded() {
		t.Fatalf("unexpected format result %+v", res)
	}

	rec = do(t, s, http.MethodPost, "/augment/analyze", `{"code":"x=1"}`)
	var analysis augment.CodeAnalysis
	decodeBody(t, rec, &analysis)
	if analysis.Language != "plaintext" || analysis.IsSensitive || !analysis.Degraded() {
		t.Fatalf("unexpected analysis %+v", analysis)
	}

	rec = do(t, s, http.MethodPost, "/augment/ocr", `{"image":"aGVsbG8=","mimeType":"image/png"}`)
	decodeBody(t, rec, &res)
	if res.Text != augment.FallbackNotConfigured {
		t.Fatalf("unexpected ocr result %+v", res)
	}
}

func TestAugmentOCRCallsProvider(t *testing.T) {
	gen := &fakeGenerator{reply: func(req augment.Request) (string, error) {
		if req.Inline == nil || req.Inline.MIMEType != "image/png" || string(req.Inline.Data) != "hello" {
			return "", errors.New("unexpected inline data")
		}
		return "HELLO", nil
	}}
	s, _ := newTestServer(t, gen, nil)

	rec := do(t, s, http.MethodPost, "/augment/ocr", `{"image":"data:image/png;base64,aGVsbG8="}`)
	var res augment.TextResult
	decodeBody(t, rec, &res)
	if res.Text != "HELLO" || res.Degraded() || gen.calls != 1 {
		t.Fatalf("unexpected result %+v (calls=%d)", res, gen.calls)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)

	rec := do(t, s, http.MethodOptions, "/items", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatal("PATCH not allowed")
	}
}

func TestStartServesUntilCancelled(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	svc := library.New(st, nil, library.Options{})
	defer svc.Close()

	s := New(svc, Options{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	s.Stop()
}

func TestWriteTimeoutFollowsRequestTimeout(t *testing.T) {
	tests := []struct {
		request time.Duration
		want    time.Duration
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Minute, time.Minute + writeSlack},
		{5 * time.Minute, 5*time.Minute + writeSlack},
	}
	for _, tt := range tests {
		if got := writeTimeoutFor(tt.request); got != tt.want {
			t.Fatalf("writeTimeoutFor(%v) = %v, want %v", tt.request, got, tt.want)
		}
	}

	s := New(nil, Options{RequestTimeout: 3 * time.Minute})
	if s.writeTimeout != 3*time.Minute+writeSlack {
		t.Fatalf("unexpected server write timeout %v", s.writeTimeout)
	}
}
