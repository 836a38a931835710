package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/storage"
	"github.com/starford/dagaz/internal/testutil"
)

func newTestServer(t *testing.T, authEnabled bool, token string) (*httptest.Server, *storage.FS) {
	t.Helper()
	svc, store := testutil.TestService(t)

	srv := httptest.NewServer(NewRouter(svc, authEnabled, token, nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCreateAndGetDocument(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/documents", CreateDocumentRequest{
		Title:    "My Plan",
		Category: index.CategoryProject,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	entry := decode[Entry](t, resp)
	if entry.Filename != "my-plan.md" || entry.Category != index.CategoryProject {
		t.Errorf("entry = %+v", entry)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/documents/"+entry.Filename+"/content", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	content := decode[ContentResponse](t, resp)
	if content.Content != "# My Plan\n" {
		t.Errorf("content = %q", content.Content)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/documents", nil)
	list := decode[DocumentListResponse](t, resp)
	if len(list.Documents) != 1 || list.Documents[0].Filename != "my-plan.md" {
		t.Errorf("list = %+v", list)
	}
}

func TestCreateDocument_Validation(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	cases := []CreateDocumentRequest{
		{},                                 // missing title
		{Title: "X", Category: "Nonsense"}, // unknown category
	}
	for i, req := range cases {
		resp := doJSON(t, http.MethodPost, srv.URL+"/documents", req)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, resp.StatusCode)
		}
	}
}

func TestWriteVersionsRestoreFlow(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/documents", CreateDocumentRequest{Title: "Doc", Content: "v1\n"})
	entry := decode[Entry](t, resp)
	docURL := srv.URL + "/documents/" + entry.Filename

	resp = doJSON(t, http.MethodPut, docURL+"/content", UpdateContentRequest{Content: "v2\n", EditedBy: "Agent"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, docURL+"/versions", nil)
	vlist := decode[VersionListResponse](t, resp)
	if len(vlist.Versions) != 1 {
		t.Fatalf("versions = %d, want 1", len(vlist.Versions))
	}
	snap := vlist.Versions[0]

	resp = doJSON(t, http.MethodGet, docURL+"/versions/"+snap.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get version status = %d", resp.StatusCode)
	}
	if got := decode[ContentResponse](t, resp); got.Content != "v1\n" {
		t.Errorf("snapshot content = %q", got.Content)
	}

	resp = doJSON(t, http.MethodPost, docURL+"/versions/"+snap.ID+"/restore", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restore status = %d", resp.StatusCode)
	}
	if got := decode[ContentResponse](t, resp); got.Content != "v1\n" {
		t.Errorf("restored content = %q", got.Content)
	}

	resp = doJSON(t, http.MethodGet, docURL+"/content", nil)
	if got := decode[ContentResponse](t, resp); got.Content != "v1\n" {
		t.Errorf("current content = %q", got.Content)
	}

	// Purge the history.
	resp = doJSON(t, http.MethodDelete, docURL+"/versions", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("purge status = %d", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, docURL+"/versions", nil)
	if vlist = decode[VersionListResponse](t, resp); len(vlist.Versions) != 0 {
		t.Errorf("versions after purge = %d", len(vlist.Versions))
	}
}

func TestPatchDocument(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/documents", CreateDocumentRequest{Title: "Doc"})
	entry := decode[Entry](t, resp)

	title := "Renamed"
	cat := index.CategorySecurity
	resp = doJSON(t, http.MethodPatch, srv.URL+"/documents/"+entry.Filename, PatchDocumentRequest{Title: &title, Category: &cat})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch status = %d", resp.StatusCode)
	}
	patched := decode[Entry](t, resp)
	if patched.Title != "Renamed" || patched.Category != index.CategorySecurity {
		t.Errorf("patched = %+v", patched)
	}

	resp = doJSON(t, http.MethodPatch, srv.URL+"/documents/missing.md", PatchDocumentRequest{Title: &title})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("patch missing status = %d", resp.StatusCode)
	}
}

func TestDeleteDocument_Idempotent(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/documents", CreateDocumentRequest{Title: "Doomed"})
	entry := decode[Entry](t, resp)

	for i := 0; i < 2; i++ {
		resp = doJSON(t, http.MethodDelete, srv.URL+"/documents/"+entry.Filename, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("delete #%d status = %d", i+1, resp.StatusCode)
		}
	}
}

func TestDuplicateDocument(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodPost, srv.URL+"/documents", CreateDocumentRequest{Title: "Source"})
	entry := decode[Entry](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/documents/"+entry.Filename+"/duplicate", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("duplicate status = %d", resp.StatusCode)
	}
	dup := decode[Entry](t, resp)
	if dup.Filename != "copy-of-source.md" || dup.Title != "Copy of Source" {
		t.Errorf("dup = %+v", dup)
	}
}

func TestInvalidDocumentID(t *testing.T) {
	srv, _ := newTestServer(t, false, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/documents/plain.txt/content", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	srv, _ := newTestServer(t, true, "secret")

	resp := doJSON(t, http.MethodGet, srv.URL+"/documents", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/documents", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", "secret"))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token status = %d", resp.StatusCode)
	}
}

func TestExternalFileAppearsInList(t *testing.T) {
	srv, store := newTestServer(t, false, "")

	// Written directly to disk, as the agent would.
	if err := store.Write("agent-notes.md", []byte("# Agent Notes\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/documents", nil)
	list := decode[DocumentListResponse](t, resp)
	if len(list.Documents) != 1 || list.Documents[0].Title != "Agent Notes" {
		t.Errorf("list = %+v", list)
	}
}
