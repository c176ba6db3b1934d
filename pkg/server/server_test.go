package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/cograph/pkg/analysis"
	"github.com/vanderheijden86/cograph/pkg/export"
	"github.com/vanderheijden86/cograph/pkg/layout"
	"github.com/vanderheijden86/cograph/pkg/server"
	"github.com/vanderheijden86/cograph/pkg/session"
	"github.com/vanderheijden86/cograph/pkg/testutil"
)

func newServer(t *testing.T) (*httptest.Server, *session.View) {
	t.Helper()
	sess := session.New()
	t.Cleanup(func() { _ = sess.Close() })

	v, err := sess.Open("films", session.ViewOptions{
		Title:    "Films",
		Layout:   layout.Options{Iterations: 10},
		Renderer: func(string) (export.Renderer, error) { return &export.Recorder{}, nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Open("empty", session.ViewOptions{}); err != nil {
		t.Fatal(err)
	}
	batch := testutil.BatchOf(
		testutil.Edge("A", "B", 1),
		testutil.Edge("A", "C", 2),
		testutil.Edge("B", "D", 3),
		testutil.Edge("D", "E", 4),
	)
	if _, err := v.OnDataLoaded(context.Background(), batch); err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(server.New(sess))
	t.Cleanup(ts.Close)
	return ts, v
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	decode(t, resp, &body)
	if body["status"] != "ok" || body["views"] != float64(2) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestListViews(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/views/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var views []server.ViewSummary
	decode(t, resp, &views)
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	byID := map[string]server.ViewSummary{}
	for _, v := range views {
		byID[v.ID] = v
	}
	films := byID["films"]
	if films.State != "ready" || films.Stats.Nodes != 5 || !films.Active || films.Resolution != 1.0 {
		t.Errorf("unexpected films summary %+v", films)
	}
	if byID["empty"].State != "idle" {
		t.Errorf("unexpected empty summary %+v", byID["empty"])
	}
}

func TestGetGraph(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/views/films/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var doc export.Document
	decode(t, resp, &doc)
	if len(doc.Nodes) != 5 || len(doc.Edges) != 4 || doc.Attributes.Title != "Films" {
		t.Errorf("unexpected document: %d nodes, %d edges, title %q", len(doc.Nodes), len(doc.Edges), doc.Attributes.Title)
	}

	if resp := do(t, http.MethodGet, ts.URL+"/api/views/empty/", ""); resp.StatusCode != http.StatusConflict {
		t.Errorf("empty view status = %d, want 409", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/views/nope/", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown view status = %d, want 404", resp.StatusCode)
	}
}

func TestHover(t *testing.T) {
	ts, v := newServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/views/films/hover", `{"node":"A"}`)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("hover status = %d", resp.StatusCode)
	}
	snap, err := v.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if id, ok := snap.Styler.State.Hovered(); !ok || id != "A" {
		t.Errorf("expected hover on A, got %q %v", id, ok)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/views/films/", "")
	var doc export.Document
	decode(t, resp, &doc)
	if doc.Attributes.Focus != "A" {
		t.Errorf("expected focus A in document, got %q", doc.Attributes.Focus)
	}

	if resp := do(t, http.MethodPost, ts.URL+"/api/views/films/hover", `{"node":"Z"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown node status = %d, want 404", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/views/films/hover", `{"nod":"A"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", resp.StatusCode)
	}

	if resp := do(t, http.MethodDelete, ts.URL+"/api/views/films/hover", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("leave status = %d", resp.StatusCode)
	}
	snap, _ = v.Snapshot(context.Background())
	if snap.Styler.State.Focused() {
		t.Error("expected idle after leave")
	}
}

func TestResolution(t *testing.T) {
	ts, v := newServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/views/films/resolution", `{"command":"+"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Resolution float64 `json:"resolution"`
		Reset      bool    `json:"reset"`
		Groups     int     `json:"groups"`
	}
	decode(t, resp, &body)
	if body.Resolution != 1.1 || body.Reset || body.Groups == 0 {
		t.Errorf("unexpected response %+v", body)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/views/films/resolution", `{"value":4.0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodPost, ts.URL+"/api/views/films/resolution", `{"command":"up"}`)
	decode(t, resp, &body)
	if !body.Reset || body.Resolution != 1.0 {
		t.Errorf("expected reset to default, got %+v", body)
	}
	if res, _ := v.Resolution(context.Background()); res != analysis.DefaultResolution {
		t.Errorf("view resolution = %s", res)
	}

	for _, payload := range []string{`{"command":"sideways"}`, `{}`} {
		if resp := do(t, http.MethodPost, ts.URL+"/api/views/films/resolution", payload); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", payload, resp.StatusCode)
		}
	}
}

func TestResolutionValueOutOfRangeResets(t *testing.T) {
	ts, v := newServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/views/films/resolution", `{"value":2.5}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/views/films/resolution", `{"value":9.0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Resolution float64 `json:"resolution"`
		Reset      bool    `json:"reset"`
	}
	decode(t, resp, &body)
	if !body.Reset || body.Resolution != 1.0 {
		t.Errorf("expected reset to default, got %+v", body)
	}
	if res, _ := v.Resolution(context.Background()); res != analysis.DefaultResolution {
		t.Errorf("view resolution = %s, want default", res)
	}
}

func TestRankingAndCommunities(t *testing.T) {
	ts, _ := newServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/views/films/ranking", "")
	var ranking analysis.Ranking
	decode(t, resp, &ranking)
	if len(ranking.Rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(ranking.Rows))
	}
	if ranking.Status.Degree.State != analysis.StateComputed {
		t.Errorf("degree status = %+v", ranking.Status.Degree)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/views/films/communities", "")
	var part analysis.Partition
	decode(t, resp, &part)
	members := 0
	for _, g := range part.Groups {
		members += len(g.Members)
	}
	if members != 5 {
		t.Errorf("expected every node in a community, got %d", members)
	}
}

func TestRenderSVG(t *testing.T) {
	ts, _ := newServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/views/films/render.svg", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("expected an svg document")
	}
}
