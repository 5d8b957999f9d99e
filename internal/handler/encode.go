package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

func writeError(w http.ResponseWriter, code int, message string) {
	httpmiddleware.WriteError(w, code, message)
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// decodeBody walks a JSON object body, calling fn for every field.
func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	d := jx.Decode(r.Body, 512)
	if err := d.Obj(fn); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

func money(e *jx.Encoder, v decimal.Decimal) {
	e.Float64(v.Round(2).InexactFloat64())
}

func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + path
}

func (h *Handler) encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	money(e, p.Price)
	if p.CategoryID != "" {
		e.FieldStart("categoryId")
		e.Str(p.CategoryID)
	}
	e.FieldStart("image")
	e.Str(h.imageURL(p.Image()))
	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(h.imageURL(img))
	}
	e.ArrEnd()
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("createdAt")
	e.Str(p.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func (h *Handler) encodeProducts(e *jx.Encoder, products []catalog.Product) {
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(e, p)
	}
	e.ArrEnd()
}

func encodeCategories(e *jx.Encoder, categories []catalog.Category) {
	e.ArrStart()
	for _, c := range categories {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(c.ID)
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("slug")
		e.Str(c.Slug)
		e.FieldStart("description")
		e.Str(c.Description)
		e.FieldStart("icon")
		e.Str(c.Icon)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func (h *Handler) encodeCollections(e *jx.Encoder, collections []catalog.Collection) {
	e.ArrStart()
	for _, c := range collections {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(c.ID)
		e.FieldStart("name")
		e.Str(c.Name)
		e.FieldStart("slug")
		e.Str(c.Slug)
		e.FieldStart("description")
		e.Str(c.Description)
		e.FieldStart("image")
		e.Str(h.imageURL(c.Image))
		e.ObjEnd()
	}
	e.ArrEnd()
}

func (h *Handler) encodePosts(e *jx.Encoder, posts []catalog.BlogPost) {
	e.ArrStart()
	for _, p := range posts {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("title")
		e.Str(p.Title)
		e.FieldStart("slug")
		e.Str(p.Slug)
		e.FieldStart("excerpt")
		e.Str(p.Excerpt)
		e.FieldStart("content")
		e.Str(p.Content)
		e.FieldStart("image")
		e.Str(h.imageURL(p.Image))
		e.FieldStart("tags")
		encodeStrings(e, p.Tags)
		e.FieldStart("createdAt")
		e.Str(p.CreatedAt.UTC().Format(time.RFC3339))
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeStrings(e *jx.Encoder, values []string) {
	e.ArrStart()
	for _, v := range values {
		e.Str(v)
	}
	e.ArrEnd()
}

func (h *Handler) encodeLine(e *jx.Encoder, li cart.LineItem) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(li.ID)
	e.FieldStart("productId")
	e.Str(li.ProductID)
	e.FieldStart("productName")
	e.Str(li.ProductName)
	e.FieldStart("price")
	money(e, li.Price)
	e.FieldStart("quantity")
	e.Int(li.Quantity)
	e.FieldStart("subtotal")
	money(e, li.Subtotal())
	e.FieldStart("image")
	e.Str(h.imageURL(li.Image))
	e.ObjEnd()
}

// encodeCart writes the cart view of one snapshot of lines.
func (h *Handler) encodeCart(e *jx.Encoder, items []cart.LineItem) {
	summary := cart.Summarize(items, h.pricing)

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, li := range items {
		h.encodeLine(e, li)
	}
	e.ArrEnd()
	e.FieldStart("total")
	money(e, cart.Total(items))
	e.FieldStart("itemCount")
	e.Int(cart.ItemCount(items))
	e.FieldStart("summary")
	e.ObjStart()
	e.FieldStart("subtotal")
	money(e, summary.Subtotal)
	e.FieldStart("shipping")
	money(e, summary.Shipping)
	e.FieldStart("tax")
	money(e, summary.Tax)
	e.FieldStart("grandTotal")
	money(e, summary.GrandTotal)
	e.FieldStart("itemCount")
	e.Int(summary.ItemCount)
	e.FieldStart("lineCount")
	e.Int(summary.LineCount)
	e.ObjEnd()
	e.ObjEnd()
}
