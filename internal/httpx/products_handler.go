package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/example/shoporder/internal/catalog"
)

// CatalogStore is the catalog surface the handler needs; *catalog.Repo is
// the postgres implementation.
type CatalogStore interface {
	Create(ctx context.Context, in catalog.ProductInput) (catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductInput) (catalog.Product, error)
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, f catalog.ListFilter, page, perPage int) ([]catalog.Product, int, error)
}

type ProductsHandler struct {
	Store CatalogStore
}

type productReq struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Status        *int            `json:"status,omitempty"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
	r.Put("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

func (h *ProductsHandler) decode(w http.ResponseWriter, r *http.Request, forUpdate bool) (catalog.ProductInput, bool) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return catalog.ProductInput{}, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return catalog.ProductInput{}, false
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return catalog.ProductInput{}, false
	}
	if req.StockQuantity < 0 {
		writeError(w, http.StatusBadRequest, "stock_quantity must not be negative")
		return catalog.ProductInput{}, false
	}

	// New products default to active; updates must say what they mean.
	status := catalog.StatusActive
	if req.Status != nil {
		s, err := catalog.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return catalog.ProductInput{}, false
		}
		status = s
	} else if forUpdate {
		writeError(w, http.StatusBadRequest, "status is required")
		return catalog.ProductInput{}, false
	}

	return catalog.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		Status:        status,
	}, true
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r, false)
	if !ok {
		return
	}
	p, err := h.Store.Create(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusCreated, map[string]any{"product": p})
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r, true)
	if !ok {
		return
	}
	p, err := h.Store.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"product": p})
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"message": "product deleted"})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.ListFilter{NameContains: q.Get("name")}
	if v := q.Get("status"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "status must be an integer")
			return
		}
		s, err := catalog.ParseStatus(n)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = &s
	}
	page := atoiDefault(q.Get("page"), 1)
	perPage := atoiDefault(q.Get("per_page"), 5)

	products, total, err := h.Store.List(r.Context(), f, page, perPage)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
