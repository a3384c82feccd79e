package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/laguz/internal/backup"
	"github.com/starford/laguz/internal/kvstore"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/repository"
	"github.com/starford/laguz/internal/validate"
)

type testEnv struct {
	server *httptest.Server
	repo   *repository.Repository
}

func newTestEnv(t *testing.T, maxNotes int, authEnabled bool, token string) *testEnv {
	t.Helper()
	store, err := kvstore.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limits := validate.Limits{
		MaxTitleLength: 200,
		MaxNoteLength:  100000,
		MaxTagsPerNote: 10,
		MaxTagLength:   50,
		MaxCategoryLen: 50,
	}
	repo := repository.New(store, limits, maxNotes, logger)
	engine := backup.New(store, repo, "1.0.0", 5, 24*time.Hour, logger)

	server := httptest.NewServer(NewRouter(repo, engine, authEnabled, token, nil))
	t.Cleanup(server.Close)
	return &testEnv{server: server, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func dataAs(t *testing.T, env envelope, out any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestCreateAndGetNote(t *testing.T) {
	env := newTestEnv(t, 100, false, "")

	resp, body := env.do(t, http.MethodPost, "/notes",
		`{"title":"First","content":"hello","tags":["a","b"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !body.Success {
		t.Fatalf("success = false: %s", body.Error)
	}
	var created models.Note
	dataAs(t, body, &created)
	if created.ID == "" || created.Title != "First" {
		t.Errorf("created = %+v", created)
	}

	resp, body = env.do(t, http.MethodGet, "/notes/"+created.ID, "")
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("get status = %d, success = %v", resp.StatusCode, body.Success)
	}
	var fetched models.Note
	dataAs(t, body, &fetched)
	if fetched.ID != created.ID {
		t.Errorf("fetched = %+v", fetched)
	}
}

func TestCreateNoteValidationFailure(t *testing.T) {
	env := newTestEnv(t, 100, false, "")

	resp, body := env.do(t, http.MethodPost, "/notes", `{"title":"   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body.Success {
		t.Error("success should be false")
	}
	if !strings.Contains(body.Error, "title is required") {
		t.Errorf("error = %q", body.Error)
	}
}

func TestCreateNoteBadJSON(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	resp, body := env.do(t, http.MethodPost, "/notes", `{not json`)
	if resp.StatusCode != http.StatusBadRequest || body.Success {
		t.Errorf("status = %d, success = %v", resp.StatusCode, body.Success)
	}
}

func TestCapacityConflict(t *testing.T) {
	env := newTestEnv(t, 1, false, "")
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"only"}`)

	resp, body := env.do(t, http.MethodPost, "/notes", `{"title":"too many"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
	if body.Success {
		t.Error("success should be false")
	}
}

func TestGetNoteNotFound(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	resp, body := env.do(t, http.MethodGet, "/notes/nope", "")
	if resp.StatusCode != http.StatusNotFound || body.Success {
		t.Errorf("status = %d, success = %v", resp.StatusCode, body.Success)
	}
}

func TestUpdateNotePartial(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, created := env.do(t, http.MethodPost, "/notes", `{"title":"orig","content":"body"}`)
	var note models.Note
	dataAs(t, created, &note)

	resp, body := env.do(t, http.MethodPatch, "/notes/"+note.ID, `{"title":"renamed"}`)
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, error = %s", resp.StatusCode, body.Error)
	}
	var updated models.Note
	dataAs(t, body, &updated)
	if updated.Title != "renamed" || updated.Content != "body" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestDeleteRestoreLifecycle(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, created := env.do(t, http.MethodPost, "/notes", `{"title":"cycle"}`)
	var note models.Note
	dataAs(t, created, &note)

	// Soft delete hides the note from the default listing.
	resp, _ := env.do(t, http.MethodDelete, "/notes/"+note.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("soft delete status = %d", resp.StatusCode)
	}
	_, list := env.do(t, http.MethodGet, "/notes", "")
	var page NoteListResponse
	dataAs(t, list, &page)
	if page.Total != 0 {
		t.Errorf("total = %d after soft delete", page.Total)
	}

	// But it stays addressable and restorable.
	resp, body := env.do(t, http.MethodPost, "/notes/"+note.ID+"/restore", "")
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("restore status = %d", resp.StatusCode)
	}

	// Permanent delete is final and idempotent.
	resp, _ = env.do(t, http.MethodDelete, "/notes/"+note.ID+"?permanent=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("permanent delete status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodDelete, "/notes/"+note.ID+"?permanent=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("repeat permanent delete status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/notes/"+note.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after permanent delete status = %d", resp.StatusCode)
	}
}

func TestListNotesFilterAndPagination(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"a","category":"work"}`)
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"b","category":"work"}`)
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"c","category":"home"}`)

	_, body := env.do(t, http.MethodGet, "/notes?category=work&limit=1", "")
	var page NoteListResponse
	dataAs(t, body, &page)
	if page.Total != 2 {
		t.Errorf("total = %d, want filtered count before pagination", page.Total)
	}
	if len(page.Notes) != 1 {
		t.Errorf("page size = %d, want 1", len(page.Notes))
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"golang notes"}`)
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"unrelated"}`)

	resp, body := env.do(t, http.MethodGet, "/search?q=go", "")
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var sr SearchResponse
	dataAs(t, body, &sr)
	if len(sr.Results) != 1 || sr.Results[0].Score != 100 {
		t.Errorf("results = %+v", sr.Results)
	}

	// Missing q is a client error.
	resp, body = env.do(t, http.MethodGet, "/search", "")
	if resp.StatusCode != http.StatusBadRequest || body.Success {
		t.Errorf("missing q: status = %d", resp.StatusCode)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"golang weekly"}`)

	_, body := env.do(t, http.MethodGet, "/search/suggest?q=go", "")
	var sr SuggestResponse
	dataAs(t, body, &sr)
	if len(sr.Suggestions) != 1 || sr.Suggestions[0] != "golang" {
		t.Errorf("suggestions = %v", sr.Suggestions)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, _ = env.do(t, http.MethodPost, "/notes", `{"title":"a","category":"work","tags":["x"]}`)

	_, body := env.do(t, http.MethodGet, "/stats", "")
	var stats StatsResponse
	dataAs(t, body, &stats)
	if stats.Total != 1 || stats.Categories != 1 || stats.Tags != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t, 100, false, "")

	// Defaults come back before anything is saved.
	_, body := env.do(t, http.MethodGet, "/settings", "")
	var settings models.AppSettings
	dataAs(t, body, &settings)
	if settings.Theme == "" {
		t.Errorf("default settings = %+v", settings)
	}

	resp, _ := env.do(t, http.MethodPut, "/settings",
		`{"theme":"dark","default_sort_by":"title","default_sort_order":"asc","auto_backup_enabled":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put status = %d", resp.StatusCode)
	}
	_, body = env.do(t, http.MethodGet, "/settings", "")
	dataAs(t, body, &settings)
	if settings.Theme != "dark" || !settings.AutoBackupEnabled {
		t.Errorf("settings = %+v", settings)
	}
}

func TestBackupFlow(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	_, created := env.do(t, http.MethodPost, "/notes", `{"title":"snapshotted"}`)
	var note models.Note
	dataAs(t, created, &note)

	resp, body := env.do(t, http.MethodPost, "/backups", "")
	if resp.StatusCode != http.StatusCreated || !body.Success {
		t.Fatalf("create backup status = %d, error = %s", resp.StatusCode, body.Error)
	}
	var meta models.BackupMetadata
	dataAs(t, body, &meta)
	if meta.NotesCount != 1 {
		t.Errorf("metadata = %+v", meta)
	}

	_, body = env.do(t, http.MethodGet, "/backups", "")
	var list BackupListResponse
	dataAs(t, body, &list)
	if len(list.Backups) != 1 {
		t.Fatalf("backups = %+v", list.Backups)
	}

	// Wipe, restore, verify the note comes back.
	_, _ = env.do(t, http.MethodDelete, "/notes", "")
	resp, _ = env.do(t, http.MethodPost, "/backups/"+meta.ID+"/restore", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restore status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodGet, "/notes/"+note.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("restored note status = %d", resp.StatusCode)
	}

	// Export and re-import as a new record.
	resp, _ = env.do(t, http.MethodGet, "/backups/"+meta.ID+"/export", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodDelete, "/backups/"+meta.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete backup status = %d", resp.StatusCode)
	}
	_, body = env.do(t, http.MethodGet, "/backups", "")
	dataAs(t, body, &list)
	if len(list.Backups) != 0 {
		t.Errorf("backups after delete = %+v", list.Backups)
	}
}

func TestImportBackupRejectsMalformed(t *testing.T) {
	env := newTestEnv(t, 100, false, "")
	resp, body := env.do(t, http.MethodPost, "/backups/import", `{"version":1}`)
	if resp.StatusCode != http.StatusBadRequest || body.Success {
		t.Errorf("status = %d, success = %v", resp.StatusCode, body.Success)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, 100, true, "secret-token")

	resp, body := env.do(t, http.MethodGet, "/notes", "")
	if resp.StatusCode != http.StatusUnauthorized || body.Success {
		t.Errorf("no token: status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/notes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", resp2.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, env.server.URL+"/notes", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp3, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("valid token: status = %d", resp3.StatusCode)
	}
}
