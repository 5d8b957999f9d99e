package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
)

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.cartSession(w, r)
	store := h.sessions.Get(r.Context(), sessionID)
	h.writeCart(w, http.StatusOK, store.Items())
}

// AddCartItem adds {productId, quantity} to the cart. Name, price and image
// are taken from the catalog, never from the request.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId is required")
		return
	}

	p, err := h.browser.Product(r.Context(), productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		zctx.From(r.Context()).Error("Look up cart product failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	sessionID := h.cartSession(w, r)
	store, line := h.sessions.AddItem(r.Context(), sessionID, cart.Candidate{
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       p.Price,
		Quantity:    quantity,
		Image:       p.Image(),
	})

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("item")
	h.encodeLine(&e, line)
	e.FieldStart("cart")
	h.encodeCart(&e, store.Items())
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

// UpdateCartItem sets the quantity of a line. Zero or negative quantities
// remove the line; unknown lines leave the cart unchanged.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		quantity int
		seen     bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		seen = true
		var err error
		quantity, err = d.Int()
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !seen {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	sessionID := h.cartSession(w, r)
	store := h.sessions.UpdateQuantity(r.Context(), sessionID, mux.Vars(r)["lineId"], quantity)
	h.writeCart(w, http.StatusOK, store.Items())
}

// RemoveCartItem removes a line. Unknown lines leave the cart unchanged.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sessionID := h.cartSession(w, r)
	store := h.sessions.RemoveItem(r.Context(), sessionID, mux.Vars(r)["lineId"])
	h.writeCart(w, http.StatusOK, store.Items())
}

// ClearCart empties the cart but keeps the session.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.cartSession(w, r)
	store := h.sessions.Clear(r.Context(), sessionID)
	h.writeCart(w, http.StatusOK, store.Items())
}

// EndSession discards the cart with its persisted state and expires the
// session cookie.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if id := RequestSession(r); id != "" {
		h.sessions.End(r.Context(), id)
	}
	http.SetCookie(w, h.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeCart(w http.ResponseWriter, code int, items []cart.LineItem) {
	var e jx.Encoder
	h.encodeCart(&e, items)
	writeJSON(w, code, &e)
}
