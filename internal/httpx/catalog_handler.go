package httpx

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// CatalogReader is the read side of the catalog used by the storefront.
type CatalogReader interface {
	ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, int64, error)
	GetProduct(ctx context.Context, id int64) (*catalog.Product, error)
}

type CatalogHandler struct {
	Repo CatalogReader
}

type listProductsResp struct {
	Items  []catalog.Product `json:"items"`
	Total  int64             `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		CategorySlug: q.Get("category"),
		InStockOnly:  q.Get("inStock") == "true",
	}
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	f = f.Normalized()

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, total, err := h.Repo.ListProducts(ctx, f)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list products")
		writeJSON(w, http.StatusInternalServerError, errorResp{Message: "could not load products"})
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, listProductsResp{Items: ps, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResp{Message: "invalid product id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.GetProduct(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp{Message: err.Error()})
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Int64("product_id", id).Msg("get product")
		writeJSON(w, http.StatusInternalServerError, errorResp{Message: "could not load product"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}
