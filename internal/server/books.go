package server

import (
	"net/http"
	"strings"

	"biblioteca/pkg/domain"
)

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateBook(w, r)
	case http.MethodGet:
		s.handleListBooks(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /books/{id}, /books/{id}/metadata, /books/search/{field}
func (s *Server) handleBookByPath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(path, "/", 2)

	if parts[0] == "search" {
		if len(parts) != 2 {
			notFound(w)
			return
		}
		s.handleSearchBooks(w, r, parts[1])
		return
	}

	id, ok := parseID(parts[0])
	if !ok {
		notFound(w)
		return
	}
	if len(parts) == 2 {
		if parts[1] != "metadata" {
			notFound(w)
			return
		}
		s.handleBookMetadata(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetBook(w, r, id)
	case http.MethodPut:
		s.handleReplaceBook(w, r, id)
	case http.MethodPatch:
		s.handlePatchBook(w, r, id)
	case http.MethodDelete:
		s.handleDeleteBook(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in domain.BookInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	book, err := s.app.CreateBook(in)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.app.ListBooks()
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request, id int64) {
	book, err := s.app.GetBook(id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleReplaceBook(w http.ResponseWriter, r *http.Request, id int64) {
	var in domain.BookInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	book, err := s.app.ReplaceBook(id, in)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handlePatchBook(w http.ResponseWriter, r *http.Request, id int64) {
	var patch domain.BookPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	book, err := s.app.PatchBook(id, patch)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, id int64) {
	book, err := s.app.DeleteBook(id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "book deleted",
		"book":    book,
	})
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request, field string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, "query parameter q is required")
		return
	}
	limit := parseLimit(r, 10)

	var (
		books []domain.Book
		err   error
	)
	switch field {
	case "title":
		books, err = s.app.SearchBooksByTitle(q, limit)
	case "author":
		books, err = s.app.SearchBooksByAuthor(q, limit)
	default:
		notFound(w)
		return
	}
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleBookMetadata(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	book, meta, err := s.app.BookMetadata(id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"book":     book,
		"metadata": meta,
	})
}
