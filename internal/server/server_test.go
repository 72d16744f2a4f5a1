package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kheller/diagrid/pkg/diagram"
	"github.com/kheller/diagrid/pkg/store"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	srv := httptest.NewServer(New(store.NewMemory(), nil).Router())
	t.Cleanup(srv.Close)

	// Create a document seeded with the sample diagram.
	resp := postJSON(t, srv.URL+"/api/documents", map[string]any{"name": "test"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create document: status %d", resp.StatusCode)
	}

	var doc store.Document
	decode(t, resp.Body, &doc)
	return srv, doc.ID
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func getState(t *testing.T, srv *httptest.Server, id string) stateBody {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/documents/%s/state", srv.URL, id))
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET state: status %d", resp.StatusCode)
	}

	var body stateBody
	decode(t, resp.Body, &body)
	return body
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestChangeRoundTrip(t *testing.T) {
	srv, id := newTestServer(t)

	before := getState(t, srv, id)
	if before.SkipsEngineUpdate {
		t.Error("fresh session should not suppress engine updates")
	}

	// The browser engine reports an inserted node.
	resp := postJSON(t, fmt.Sprintf("%s/api/documents/%s/change", srv.URL, id), diagram.ChangeSet{
		InsertedNodeKeys: []int{4},
		ModifiedNodes:    []diagram.Node{{Key: 4, Attrs: diagram.Attrs{"text": "New"}}},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST change: status %d", resp.StatusCode)
	}

	after := getState(t, srv, id)
	if got, want := len(after.Nodes), len(before.Nodes)+1; got != want {
		t.Errorf("nodes = %d, want %d", got, want)
	}
	if !after.SkipsEngineUpdate {
		t.Error("engine-originated change should suppress the next engine update")
	}

	// The change must also have been persisted.
	resp2, err := http.Get(fmt.Sprintf("%s/api/documents/%s", srv.URL, id))
	if err != nil {
		t.Fatalf("GET document: %v", err)
	}
	defer resp2.Body.Close()
	var doc store.Document
	decode(t, resp2.Body, &doc)
	if got, want := len(doc.Diagram.Nodes), len(before.Nodes)+1; got != want {
		t.Errorf("persisted nodes = %d, want %d", got, want)
	}
}

func TestSelectionAndEdit(t *testing.T) {
	srv, id := newTestServer(t)
	base := fmt.Sprintf("%s/api/documents/%s", srv.URL, id)

	resp := postJSON(t, base+"/selection", map[string]any{"key": 0})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST selection: status %d", resp.StatusCode)
	}

	st := getState(t, srv, id)
	if st.SelectedKey == nil || *st.SelectedKey != 0 {
		t.Fatalf("selectedKey = %v, want 0", st.SelectedKey)
	}

	// Live edit then commit, the way the inspector reports typing and blur.
	for _, commit := range []bool{false, true} {
		resp := postJSON(t, base+"/edit", map[string]any{
			"field": "text", "value": "Hello", "commit": commit,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("POST edit(commit=%v): status %d", commit, resp.StatusCode)
		}
	}

	st = getState(t, srv, id)
	if got := st.Nodes[0].Attrs.String("text"); got != "Hello" {
		t.Errorf("nodes[0].text = %q, want Hello", got)
	}
	if st.SkipsEngineUpdate {
		t.Error("local commit must not suppress the engine update")
	}

	// Clearing the selection.
	resp = postJSON(t, base+"/selection", map[string]any{"key": nil})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST selection clear: status %d", resp.StatusCode)
	}
	if st := getState(t, srv, id); st.SelectedKey != nil {
		t.Errorf("selectedKey = %v after clear, want nil", *st.SelectedKey)
	}
}

func TestEditWithoutSelectionConflicts(t *testing.T) {
	srv, id := newTestServer(t)

	resp := postJSON(t, fmt.Sprintf("%s/api/documents/%s/edit", srv.URL, id), map[string]any{
		"field": "text", "value": "x", "commit": true,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
	var body errorBody
	decode(t, resp.Body, &body)
	if body.Error.Code != "NO_SELECTION" {
		t.Errorf("code = %q, want NO_SELECTION", body.Error.Code)
	}
}

func TestMetadataUpdate(t *testing.T) {
	srv, id := newTestServer(t)

	resp := postJSON(t, fmt.Sprintf("%s/api/documents/%s/metadata", srv.URL, id), map[string]any{
		"field": "canRelink", "value": false,
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST metadata: status %d", resp.StatusCode)
	}

	st := getState(t, srv, id)
	if got := st.Metadata["canRelink"]; got != false {
		t.Errorf("canRelink = %v, want false", got)
	}
	if st.SkipsEngineUpdate {
		t.Error("local metadata edit must not suppress the engine update")
	}
}

func TestUnknownDocument(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/documents/nope/state")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSelectionUnknownKey(t *testing.T) {
	srv, id := newTestServer(t)

	resp := postJSON(t, fmt.Sprintf("%s/api/documents/%s/selection", srv.URL, id), map[string]any{"key": 99})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

// gatedStore stalls Get for one document id until released, standing in for
// a slow backend.
type gatedStore struct {
	store.Store
	blockID string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Get(ctx context.Context, id string) (*store.Document, error) {
	if id == g.blockID {
		close(g.entered)
		<-g.release
	}
	return g.Store.Get(ctx, id)
}

func TestSlowLoadDoesNotBlockOtherSessions(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	slow := store.NewDocument("slow", diagram.Sample())
	fast := store.NewDocument("fast", diagram.Sample())
	if err := mem.Put(ctx, slow); err != nil {
		t.Fatal(err)
	}
	if err := mem.Put(ctx, fast); err != nil {
		t.Fatal(err)
	}

	g := &gatedStore{
		Store:   mem,
		blockID: slow.ID,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	srv := httptest.NewServer(New(g, nil).Router())
	t.Cleanup(srv.Close)

	// Open a session for the fast document before anything stalls.
	getState(t, srv, fast.ID)

	slowDone := make(chan struct{})
	go func() {
		defer close(slowDone)
		resp, err := http.Get(fmt.Sprintf("%s/api/documents/%s/state", srv.URL, slow.ID))
		if err == nil {
			resp.Body.Close()
		}
	}()
	<-g.entered

	// With the slow load in flight, the open session must stay reachable.
	fastDone := make(chan error, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("%s/api/documents/%s/state", srv.URL, fast.ID))
		if err == nil {
			resp.Body.Close()
		}
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		if err != nil {
			t.Fatalf("GET state for open session: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request for an open session blocked behind a slow document load")
	}

	close(g.release)
	<-slowDone
}
