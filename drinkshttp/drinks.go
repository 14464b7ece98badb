package drinkshttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/drinks"
)

func (h *Handler) handleListDrinks(w http.ResponseWriter, r *http.Request) error {
	list, err := h.store.List(r.Context())
	if err != nil {
		return err
	}
	out := make([]drinks.Short, 0, len(list))
	for _, d := range list {
		out = append(out, d.Short())
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drinks": out})
	return nil
}

func (h *Handler) handleListDrinkDetails(_ auth.Payload, w http.ResponseWriter, r *http.Request) error {
	list, err := h.store.List(r.Context())
	if err != nil {
		return err
	}
	out := make([]drinks.Long, 0, len(list))
	for _, d := range list {
		out = append(out, d.Long())
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drinks": out})
	return nil
}

func (h *Handler) handleCreateDrink(_ auth.Payload, w http.ResponseWriter, r *http.Request) error {
	var in drinks.Input
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	d, err := h.store.Create(r.Context(), in.Drink())
	if err != nil {
		return err
	}
	h.log.InfoContext(r.Context(), "drinks.create.ok", slog.Int64("id", d.ID))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drinks": []drinks.Long{d.Long()}})
	return nil
}

func (h *Handler) handleUpdateDrink(_ auth.Payload, w http.ResponseWriter, r *http.Request) error {
	id, err := drinkID(r)
	if err != nil {
		return err
	}
	var p drinks.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		return err
	}
	d, err := h.store.Update(r.Context(), id, p)
	if err != nil {
		return err
	}
	h.log.InfoContext(r.Context(), "drinks.update.ok", slog.Int64("id", d.ID))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "drinks": []drinks.Long{d.Long()}})
	return nil
}

func (h *Handler) handleDeleteDrink(_ auth.Payload, w http.ResponseWriter, r *http.Request) error {
	id, err := drinkID(r)
	if err != nil {
		return err
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		return err
	}
	h.log.InfoContext(r.Context(), "drinks.delete.ok", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "delete": id})
	return nil
}

// drinkID parses the {id} path segment. Anything that is not a positive
// integer cannot name a drink.
func drinkID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, drinks.ErrNotFound
	}
	return id, nil
}

var errMediaType = errors.New("content-type must be application/json")

// decodeJSON reads a single JSON object from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Header.Get("Content-Type") == "" {
		return badRequest(errMediaType)
	}
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		return badRequest(errMediaType)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Errorf("decode body: %w", err))
	}
	if dec.More() {
		return badRequest(errors.New("body must hold a single JSON value"))
	}
	return nil
}
