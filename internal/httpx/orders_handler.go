package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/example/shoporder/internal/auth"
	"github.com/example/shoporder/internal/orders"
	"github.com/example/shoporder/internal/redisx"
)

type OrdersHandler struct {
	Service *orders.Service
	Redis   *redis.Client
}

type createOrderReq struct {
	Items []orders.OrderLine `json:"items"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Put("/orders/update-status/{id}", h.updateStatus)
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "at least one item is required")
		return
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			writeError(w, http.StatusBadRequest, "product_id is required for every item")
			return
		}
		if it.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
	}

	order, err := h.Service.Place(r.Context(), auth.UserID(r.Context()), req.Items,
		middleware.GetReqID(r.Context()))
	if err != nil {
		writeFailure(w, err)
		return
	}

	h.cacheStatus(r, order)
	writeResult(w, http.StatusCreated, map[string]any{"order": order})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{"order": order})
}

// getStatus serves the order status from the redis read model when present
// and falls back to the database, refreshing the cache.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeResult(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	order, err := h.Service.Get(r.Context(), orderID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.cacheStatus(r, order)
	writeResult(w, http.StatusOK, map[string]any{"status": order.Status})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.ListFilter{UserName: q.Get("name")}
	if v := q.Get("status"); v != "" {
		s, err := orders.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = &s
	}
	page := atoiDefault(q.Get("page"), 1)
	perPage := atoiDefault(q.Get("per_page"), 5)

	list, total, err := h.Service.List(r.Context(), f, page, perPage)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]any{
		"orders":   list,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	status, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status,
		middleware.GetReqID(r.Context()))
	if err != nil {
		writeFailure(w, err)
		return
	}

	h.cacheStatus(r, order)
	writeResult(w, http.StatusOK, map[string]any{"order": order})
}

func (h *OrdersHandler) cacheStatus(r *http.Request, order orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	body, _ := json.Marshal(map[string]any{"status": order.Status})
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
}
