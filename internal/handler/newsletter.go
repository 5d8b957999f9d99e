package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/newsletter"
)

// Subscribe adds {email} to the newsletter list.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var email string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "email" {
			return d.Skip()
		}
		var err error
		email, err = d.Str()
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	normalized, err := h.newsletter.Subscribe(r.Context(), email)
	switch {
	case errors.Is(err, newsletter.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, newsletter.ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		zctx.From(r.Context()).Error("Subscribe failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "subscription failed")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("email")
	e.Str(normalized)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}
