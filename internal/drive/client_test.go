package drive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
)

func fakeDriveServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

// The delegated static token satisfies the credential requirement, so the
// fake endpoint is the only option needed.
func newFakeClient(ts *httptest.Server) *GoogleClient {
	return NewGoogleClient(option.WithEndpoint(ts.URL))
}

func TestListFolder(t *testing.T) {
	ts := fakeDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "files") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query().Get("q")
		if !strings.Contains(q, "'folder-1' in parents") || !strings.Contains(q, "trashed = false") {
			t.Errorf("unexpected query: %s", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"files": [
				{"id": "f1", "name": "a.pdf", "mimeType": "application/pdf"},
				{"id": "f2", "name": "sub", "mimeType": "application/vnd.google-apps.folder"}
			]
		}`))
	})
	defer ts.Close()

	files, err := newFakeClient(ts).ListFolder(context.Background(), "folder-1", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(files))
	}
	if files[0].ID != "f1" || files[0].Name != "a.pdf" || files[0].MIMEType != "application/pdf" {
		t.Errorf("unexpected first entry: %+v", files[0])
	}
	if files[1].MIMEType != FolderMIMEType {
		t.Errorf("expected folder mime type, got %s", files[1].MIMEType)
	}
}

func TestListFolder_Paginated(t *testing.T) {
	calls := 0
	ts := fakeDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			w.Write([]byte(`{"files": [{"id": "f1", "name": "a.pdf", "mimeType": "application/pdf"}], "nextPageToken": "page2"}`))
			return
		}
		w.Write([]byte(`{"files": [{"id": "f2", "name": "b.pdf", "mimeType": "application/pdf"}]}`))
	})
	defer ts.Close()

	files, err := newFakeClient(ts).ListFolder(context.Background(), "folder-1", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 list calls, got %d", calls)
	}
	if len(files) != 2 || files[1].ID != "f2" {
		t.Errorf("unexpected files: %+v", files)
	}
}

func TestListFolder_RemoteError(t *testing.T) {
	ts := fakeDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "forbidden"}}`, http.StatusForbidden)
	})
	defer ts.Close()

	_, err := newFakeClient(ts).ListFolder(context.Background(), "folder-1", "bad-token")
	if err == nil {
		t.Fatal("expected error for non-2xx listing")
	}
}

func TestDownload(t *testing.T) {
	ts := fakeDriveServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("alt") != "media" {
			t.Errorf("expected alt=media download, got query %s", r.URL.RawQuery)
		}
		w.Write([]byte("resume bytes"))
	})
	defer ts.Close()

	content, err := newFakeClient(ts).Download(context.Background(), "f1", "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(content) != "resume bytes" {
		t.Errorf("unexpected content: %q", content)
	}
}
