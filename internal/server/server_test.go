package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"biblioteca/internal/app"
	"biblioteca/pkg/domain"
	"biblioteca/pkg/store"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []string
}

func (r *recordingSubmitter) Submit(kind string, recordID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, fmt.Sprintf("%s/%d", kind, recordID))
}

type slowSubmitter struct{}

func (slowSubmitter) Submit(string, int64) { time.Sleep(2 * time.Second) }

func newTestServer(t *testing.T, backups app.BackupSubmitter) (*Server, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	a, err := app.New(app.Config{Store: mem, Backups: backups})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv, err := New(Config{App: a})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return srv, mem
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateAndGetBook(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{
		"title":  "The Go Programming Language",
		"author": "Alan Donovan",
		"isbn":   "978-0-13-419044-0",
		"rating": 5,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created domain.Book
	decodeBody(t, rec, &created)
	if created.ID != 1 {
		t.Fatalf("id = %d, want 1", created.ID)
	}
	if created.ISBN != "9780134190440" {
		t.Fatalf("isbn = %q, want normalized digits", created.ISBN)
	}
	if created.Status != domain.StatusToRead {
		t.Fatalf("status = %q, want default to_read", created.Status)
	}

	rec = doJSON(t, h, http.MethodGet, "/books/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var fetched domain.Book
	decodeBody(t, rec, &fetched)
	if fetched.Title != "The Go Programming Language" {
		t.Fatalf("title = %q", fetched.Title)
	}
}

func TestCreateBookInvalidISBN(t *testing.T) {
	srv, mem := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{
		"title":  "Broken",
		"author": "Nobody",
		"isbn":   "12345",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Code != "VALIDATION_INVALID_FORMAT" || body.Field != "isbn" {
		t.Fatalf("error body = %+v", body)
	}
	if n, _ := mem.CountBooks(); n != 0 {
		t.Fatalf("rejected create stored a record: count = %d", n)
	}
}

func TestPatchBookInvalidRatingLeavesRecordUntouched(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPatch, "/books/1", map[string]any{"rating": 6})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("patch status = %d, want 400", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Field != "rating" {
		t.Fatalf("error field = %q, want rating", body.Field)
	}

	rec = doJSON(t, h, http.MethodGet, "/books/1", nil)
	var after domain.Book
	decodeBody(t, rec, &after)
	if after.Rating != nil {
		t.Fatalf("failed patch mutated stored record: rating = %v", *after.Rating)
	}
}

func TestReplaceBookKeepsIdentity(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Old", "author": "A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created domain.Book
	decodeBody(t, rec, &created)

	rec = doJSON(t, h, http.MethodPut, "/books/1", map[string]any{"title": "New", "author": "B", "status": "reading"})
	if rec.Code != http.StatusOK {
		t.Fatalf("replace status = %d, body %s", rec.Code, rec.Body.String())
	}
	var replaced domain.Book
	decodeBody(t, rec, &replaced)
	if replaced.ID != created.ID {
		t.Fatalf("replace changed id: %d -> %d", created.ID, replaced.ID)
	}
	if !replaced.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("replace changed created_at")
	}
	if replaced.Title != "New" || replaced.Status != domain.StatusReading {
		t.Fatalf("replaced = %+v", replaced)
	}
}

func TestDeleteBookNotFoundTwice(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodDelete, "/books/99", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("attempt %d: status = %d, want 404", i+1, rec.Code)
		}
		var body errorResponse
		decodeBody(t, rec, &body)
		if body.Code != "RECORD_NOT_FOUND" {
			t.Fatalf("code = %q", body.Code)
		}
	}
}

func TestDeleteBookReturnsRemovedRecord(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Ephemeral", "author": "E"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodDelete, "/books/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	var body struct {
		Message string      `json:"message"`
		Book    domain.Book `json:"book"`
	}
	decodeBody(t, rec, &body)
	if body.Book.Title != "Ephemeral" {
		t.Fatalf("deleted payload = %+v", body)
	}

	rec = doJSON(t, h, http.MethodGet, "/books/1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestSearchBooksByTitle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	for _, b := range []map[string]any{
		{"title": "The Great Gatsby", "author": "F. Scott Fitzgerald"},
		{"title": "Great Expectations", "author": "Charles Dickens"},
		{"title": "Moby Dick", "author": "Herman Melville"},
	} {
		if rec := doJSON(t, h, http.MethodPost, "/books", b); rec.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d", rec.Code)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/books/search/title?q=great", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Items []domain.Book `json:"items"`
		Count int           `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 || len(body.Items) != 2 {
		t.Fatalf("search returned %d items", body.Count)
	}

	rec = doJSON(t, h, http.MethodGet, "/books/search/title", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/books/search/publisher?q=x", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown field: status = %d, want 404", rec.Code)
	}
}

func TestBookMetadata(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/books/1/metadata", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Book     domain.Book         `json:"book"`
		Metadata domain.BookMetadata `json:"metadata"`
	}
	decodeBody(t, rec, &body)
	if body.Metadata.Availability == "" {
		t.Fatalf("metadata missing: %+v", body)
	}

	rec = doJSON(t, h, http.MethodGet, "/books/42/metadata", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing book metadata: status = %d", rec.Code)
	}
}

func TestCreateProductDanglingCategory(t *testing.T) {
	srv, mem := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/products", map[string]any{
		"name":        "Teclado",
		"price":       49.9,
		"quantity":    3,
		"category_id": 999,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Code != "VALIDATION_DANGLING_REFERENCE" || body.Field != "category_id" {
		t.Fatalf("error body = %+v", body)
	}
	if n, _ := mem.CountProducts(); n != 0 {
		t.Fatalf("dangling create stored a record")
	}
}

func TestProductLifecycleWithCategory(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/categories", map[string]any{"name": "Perifericos"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("category status = %d", rec.Code)
	}
	var cat domain.Category
	decodeBody(t, rec, &cat)

	rec = doJSON(t, h, http.MethodPost, "/products", map[string]any{
		"name":        "Teclado",
		"price":       49.9,
		"quantity":    3,
		"category_id": cat.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("product status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, fmt.Sprintf("/categories/%d", cat.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("category detail status = %d", rec.Code)
	}
	var detail struct {
		Category domain.Category  `json:"category"`
		Products []domain.Product `json:"products"`
	}
	decodeBody(t, rec, &detail)
	if len(detail.Products) != 1 || detail.Products[0].Name != "Teclado" {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestListProductsPagination(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	for i := 0; i < 4; i++ {
		body := map[string]any{"name": fmt.Sprintf("Item %d", i), "price": float64(i + 1), "quantity": 1}
		if rec := doJSON(t, h, http.MethodPost, "/products", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/products?skip=1&limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Items []domain.Product `json:"items"`
		Total int              `json:"total"`
	}
	decodeBody(t, rec, &body)
	if len(body.Items) != 2 || body.Total != 4 {
		t.Fatalf("items=%d total=%d, want 2/4", len(body.Items), body.Total)
	}
	if body.Items[0].ID != 2 {
		t.Fatalf("first item id = %d, want 2", body.Items[0].ID)
	}
}

func TestProductStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodGet, "/products/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var empty domain.ProductStats
	decodeBody(t, rec, &empty)
	if empty.Total != 0 || empty.Avg != 0 {
		t.Fatalf("empty stats = %+v", empty)
	}

	for _, price := range []float64{10, 30} {
		body := map[string]any{"name": "Item", "price": price, "quantity": 1}
		if rec := doJSON(t, h, http.MethodPost, "/products", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}
	}
	rec = doJSON(t, h, http.MethodGet, "/products/stats", nil)
	var stats domain.ProductStats
	decodeBody(t, rec, &stats)
	if stats.Total != 2 || stats.Avg != 20 || stats.Max != 30 || stats.Min != 10 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestSearchProductsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	for _, name := range []string{"Teclado mecanico", "Mouse optico"} {
		body := map[string]any{"name": name, "price": 10.0, "quantity": 1}
		if rec := doJSON(t, h, http.MethodPost, "/products", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed status = %d", rec.Code)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/products/search?q=teclado", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Query string           `json:"query"`
		Items []domain.Product `json:"items"`
		Total int              `json:"total"`
	}
	decodeBody(t, rec, &body)
	if body.Query != "teclado" || body.Total != 1 {
		t.Fatalf("search body = %+v", body)
	}
}

func TestCreateUserTitleCasesUsername(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/users", map[string]any{
		"username": "ana maria",
		"email":    "ana@example.com",
		"age":      30,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created domain.User
	decodeBody(t, rec, &created)
	if created.Username != "Ana Maria" {
		t.Fatalf("username = %q", created.Username)
	}

	rec = doJSON(t, h, http.MethodGet, "/users", nil)
	var body struct {
		Items []domain.User `json:"items"`
		Count int           `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 1 || body.Items[0].Username != "Ana Maria" {
		t.Fatalf("list = %+v", body)
	}
}

func TestCreateBookNotifiesBackups(t *testing.T) {
	sub := &recordingSubmitter{}
	srv, _ := newTestServer(t, sub)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}

	deadline := time.Now().Add(time.Second)
	for {
		sub.mu.Lock()
		n := len(sub.jobs)
		sub.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backup submit not observed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	sub.mu.Lock()
	job := sub.jobs[0]
	sub.mu.Unlock()
	if job != "book/1" {
		t.Fatalf("job = %q, want book/1", job)
	}
}

func TestSlowBackupSubmitterDoesNotDelayResponse(t *testing.T) {
	srv, _ := newTestServer(t, slowSubmitter{})
	h := srv.Router()

	start := time.Now()
	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("create blocked on backup submitter for %v", elapsed)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPut, "/books", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestMalformedJSONBody(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/books", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Code != "REQUEST_INVALID" {
		t.Fatalf("code = %q", body.Code)
	}
}

func TestHealthAndHome(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("home status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d", rec.Code)
	}
}

func TestEmptyPatchAdvancesUpdatedAt(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{"title": "Dune", "author": "Frank Herbert"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created domain.Book
	decodeBody(t, rec, &created)

	time.Sleep(10 * time.Millisecond)
	rec = doJSON(t, h, http.MethodPatch, "/books/1", map[string]any{})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}
	var patched domain.Book
	decodeBody(t, rec, &patched)
	if !patched.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("updated_at did not advance on empty patch")
	}
	if patched.Title != created.Title || patched.Status != created.Status {
		t.Fatalf("empty patch changed fields")
	}
}
