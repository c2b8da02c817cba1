package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/merchkit/storefront-core/internal/catalog"
)

// handleListProducts serves the public product listing with filter, sort,
// and pagination from the query string.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := catalog.ListOptions{
		CategorySlug: q.Get("category"),
		Search:       q.Get("search"),
		Sort:         q.Get("sort"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	products, err := s.catalog.ListProducts(r.Context(), opts)
	if err != nil {
		s.logger.Error("product listing failed", "error", err)
		writeInternalError(w, "product listing failed")
		return
	}
	if products == nil {
		products = []*catalog.Product{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

// handleGetProduct serves one published product by slug.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	product, err := s.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeNotFound(w, "product not found")
			return
		}
		s.logger.Error("product fetch failed", "slug", slug, "error", err)
		writeInternalError(w, "product fetch failed")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// handleListCategories serves the published categories.
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catalog.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("category listing failed", "error", err)
		writeInternalError(w, "category listing failed")
		return
	}
	if categories == nil {
		categories = []*catalog.Category{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
