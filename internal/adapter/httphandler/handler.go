package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// GET v1/products?search=&category=&page= (200 OK, 400 Bad request)
// GET v1/categories (200 OK)
// POST v1/catalog/reload (204 No content, 502 Bad gateway)

type CatalogHandler struct {
	browser port.ProductsBrowser
	loader  port.CatalogLoader
}

func RegisterCatalog(
	mux *http.ServeMux, browser port.ProductsBrowser, loader port.CatalogLoader,
) {
	h := CatalogHandler{browser, loader}
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("GET /v1/categories", h.GetCategories)
	mux.HandleFunc("POST /v1/catalog/reload", h.PostReload)
}

func (h CatalogHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetProducts"

	q := r.URL.Query()
	state := domain.FilterState{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Page:     1,
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, op, http.StatusBadRequest, errorResponse{"page must be a number"})
			return
		}
		state.Page = page
	}

	page, err := h.browser.Browse(r.Context(), state)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, fromPage(page))
}

func (h CatalogHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.GetCategories"

	cs, err := h.browser.Categories(r.Context())
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, fromCategories(cs))
}

func (h CatalogHandler) PostReload(w http.ResponseWriter, r *http.Request) {
	const op = "CatalogHandler.PostReload"

	if err := h.loader.LoadCatalog(r.Context()); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET v1/cart (200 OK)
// POST v1/cart/items JSON {"product_id" string} (200 OK, 404 Not found, 409 Conflict)
// DELETE v1/cart/items/{id} (200 OK)
// DELETE v1/cart (200 OK, error field set on partial failure)

type CartHandler struct {
	cart port.CartManager
}

func RegisterCart(mux *http.ServeMux, cart port.CartManager) {
	h := CartHandler{cart}
	mux.HandleFunc("GET /v1/cart", h.GetCart)
	mux.HandleFunc("POST /v1/cart/items", h.PostItem)
	mux.HandleFunc("DELETE /v1/cart/items/{id}", h.DeleteItem)
	mux.HandleFunc("DELETE /v1/cart", h.DeleteCart)
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.GetCart"

	c, err := h.cart.Cart(r.Context())
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, fromCart(c))
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeJSON(w, op, http.StatusBadRequest, errorResponse{"product_id is required"})
		return
	}

	snap, err := h.cart.AddToCart(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, fromSnapshot(snap))
}

func (h CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteItem"

	snap, err := h.cart.RemoveFromCart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, fromSnapshot(snap))
}

func (h CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteCart"

	snap, err := h.cart.ClearCart(r.Context())
	resp := fromSnapshot(snap)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			writeError(w, op, err)
			return
		}
		slog.Warn("cart cleared with errors", "op", op, "err", err)
		resp.Error = err.Error()
	}
	writeJSON(w, op, http.StatusOK, resp)
}

// POST v1/products JSON (201 Created, 400 Bad request, 502 Bad gateway)
// PUT v1/products/{id} JSON (200 OK, 400 Bad request, 404 Not found)
// DELETE v1/products/{id} (204 No content, 404 Not found, 409 Conflict)

type ProductsHandler struct {
	manager port.ProductsManager
}

func RegisterProducts(mux *http.ServeMux, manager port.ProductsManager) {
	h := ProductsHandler{manager}
	mux.HandleFunc("POST /v1/products", h.PostProduct)
	mux.HandleFunc("PUT /v1/products/{id}", h.PutProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", h.DeleteProduct)
}

func (h ProductsHandler) PostProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostProduct"

	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, op, http.StatusBadRequest, errorResponse{"invalid JSON data"})
		return
	}

	created, err := h.manager.CreateProduct(r.Context(), p.toDomain())
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusCreated, fromProduct(created))
}

func (h ProductsHandler) PutProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PutProduct"

	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, op, http.StatusBadRequest, errorResponse{"invalid JSON data"})
		return
	}

	updated, err := h.manager.UpdateProduct(r.Context(), r.PathValue("id"), p.toDomain())
	if err != nil {
		writeError(w, op, err)
		return
	}
	writeJSON(w, op, http.StatusOK, fromProduct(updated))
}

func (h ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.DeleteProduct"

	if err := h.manager.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET v1/ledger/{id} (200 OK, 503 Service unavailable)

type LedgerHandler struct {
	ledger port.ReservationLedger
}

func RegisterLedger(mux *http.ServeMux, ledger port.ReservationLedger) {
	h := LedgerHandler{ledger}
	mux.HandleFunc("GET /v1/ledger/{id}", h.GetEntry)
}

func (h LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	const op = "LedgerHandler.GetEntry"

	id := r.PathValue("id")
	n, err := h.ledger.Reserved(r.Context(), id)
	if err != nil {
		slog.Error("failed to read ledger", "op", op, "productID", id, "err", err)
		writeJSON(w, op, http.StatusServiceUnavailable, errorResponse{"ledger unavailable"})
		return
	}
	writeJSON(w, op, http.StatusOK, LedgerEntry{ProductID: id, Reserved: n})
}
