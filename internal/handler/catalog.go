package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// ListProducts serves the shop page: products filtered by ?category= (ID or
// slug) and ordered by ?sort=, together with the category filter.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := h.browser.Shop(r.Context(), catalog.ShopQuery{
		Category: q.Get("category"),
		Sort:     catalog.ParseSortOrder(q.Get("sort")),
	})

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("products")
	h.encodeProducts(&e, page.Products)
	e.FieldStart("categories")
	encodeCategories(&e, page.Categories)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// FeaturedProducts returns the home page product selection.
func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	h.encodeProducts(&e, h.browser.Home(r.Context()))
	writeJSON(w, http.StatusOK, &e)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.browser.Product(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("Get product failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	var e jx.Encoder
	h.encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

// ListCategories returns every product category.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	encodeCategories(&e, h.browser.Categories(r.Context()))
	writeJSON(w, http.StatusOK, &e)
}

// ListCollections returns the themed collections.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	h.encodeCollections(&e, h.browser.Collections(r.Context()))
	writeJSON(w, http.StatusOK, &e)
}

// CollectionProducts returns the products of one collection.
func (h *Handler) CollectionProducts(w http.ResponseWriter, r *http.Request) {
	var e jx.Encoder
	h.encodeProducts(&e, h.browser.CollectionProducts(r.Context(), mux.Vars(r)["slug"]))
	writeJSON(w, http.StatusOK, &e)
}

// ListPosts returns published blog posts, narrowed by ?tag=, and all tags.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page := h.browser.Blog(r.Context(), r.URL.Query().Get("tag"))

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("posts")
	h.encodePosts(&e, page.Posts)
	e.FieldStart("tags")
	encodeStrings(&e, page.Tags)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
