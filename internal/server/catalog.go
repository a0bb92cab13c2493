package server

import (
	"net/http"
	"strings"

	"biblioteca/pkg/domain"
)

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateProduct(w, r)
	case http.MethodGet:
		s.handleListProducts(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /products/{id}, /products/search, /products/stats
func (s *Server) handleProductByPath(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/products/")
	if strings.Contains(path, "/") {
		notFound(w)
		return
	}
	switch path {
	case "search":
		s.handleSearchProducts(w, r)
		return
	case "stats":
		s.handleProductStats(w, r)
		return
	}

	id, ok := parseID(path)
	if !ok {
		notFound(w)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetProduct(w, r, id)
	case http.MethodPatch:
		s.handlePatchProduct(w, r, id)
	case http.MethodDelete:
		s.handleDeleteProduct(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	product, err := s.app.CreateProduct(in)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.app.ListProducts(parseSkip(r), parseLimit(r, 10))
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	total, err := s.app.CountProducts()
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": products,
		"total": total,
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request, id int64) {
	product, err := s.app.GetProduct(id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handlePatchProduct(w http.ResponseWriter, r *http.Request, id int64) {
	var patch domain.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	product, err := s.app.PatchProduct(id, patch)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request, id int64) {
	product, err := s.app.DeleteProduct(id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "product deleted",
		"product": product,
	})
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		badRequest(w, "query parameter q is required")
		return
	}
	products, err := s.app.SearchProducts(q)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query": q,
		"items": products,
		"total": len(products),
	})
}

func (s *Server) handleProductStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.ProductStats()
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateCategory(w, r)
	case http.MethodGet:
		s.handleListCategories(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/categories/")
	id, ok := parseID(path)
	if !ok {
		notFound(w)
		return
	}
	category, products, err := s.app.CategoryDetail(id)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"products": products,
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	category, err := s.app.CreateCategory(in)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.app.ListCategories()
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": categories,
		"count": len(categories),
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateUser(w, r)
	case http.MethodGet:
		s.handleListUsers(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserInput
	if err := decodeJSON(r, &in); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	user, err := s.app.CreateUser(in)
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.app.ListUsers()
	if err != nil {
		s.respondAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": users,
		"count": len(users),
	})
}
