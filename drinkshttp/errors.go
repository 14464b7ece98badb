package drinkshttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/drinks"
)

const wwwAuthenticateHeader = "WWW-Authenticate"

// statusMessages are the fixed client-facing messages for non-authorization
// failures.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "bad request",
	http.StatusNotFound:            "resource not found",
	http.StatusUnprocessableEntity: "unprocessable",
	http.StatusInternalServerError: "internal server error",
}

// errorBody is the envelope of every failed response.
type errorBody struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// statusError carries an explicit status for failures raised by the HTTP
// layer itself, such as unreadable request bodies.
type statusError struct {
	status int
	cause  error
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %v", e.status, e.cause)
}

func (e *statusError) Unwrap() error { return e.cause }

func badRequest(cause error) error {
	return &statusError{status: http.StatusBadRequest, cause: cause}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = statusMessages[status]
	}
	writeJSON(w, status, errorBody{Success: false, Error: status, Message: msg})
}

// buildBearerChallenge builds a Bearer challenge header value:
//
//	Bearer realm="<realm>", resource_metadata="<url>", error="...", error_description="..."
//
// Realm and resource metadata are omitted if empty.
func buildBearerChallenge(realm, resourceMetadata, code, description string) string {
	esc := func(v string) string { return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v) }
	pieces := make([]string, 0, 4)
	if realm != "" {
		pieces = append(pieces, fmt.Sprintf(`realm="%s"`, esc(realm)))
	}
	if resourceMetadata != "" {
		pieces = append(pieces, fmt.Sprintf(`resource_metadata="%s"`, esc(resourceMetadata)))
	}
	if code != "" {
		pieces = append(pieces, fmt.Sprintf(`error="%s"`, esc(code)))
	}
	if description != "" {
		pieces = append(pieces, fmt.Sprintf(`error_description="%s"`, esc(description)))
	}
	if len(pieces) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(pieces, ", ")
}

// writeError maps err onto a response. Authorization errors keep their own
// status and description; catalog errors are mapped to fixed messages.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var ae *auth.Error
	if errors.As(err, &ae) {
		w.Header().Set(wwwAuthenticateHeader, buildBearerChallenge(h.realm, h.metadataURL, ae.Code, ae.Description))
		writeJSONError(w, ae.Status, ae.Description)
		return
	}

	var se *statusError
	switch {
	case errors.As(err, &se):
		h.log.InfoContext(ctx, "http.request.rejected", slog.Int("status", se.status), slog.String("err", err.Error()))
		writeJSONError(w, se.status, "")
	case errors.Is(err, drinks.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "")
	case errors.Is(err, drinks.ErrInvalid), errors.Is(err, drinks.ErrDuplicateTitle):
		h.log.InfoContext(ctx, "drinks.write.rejected", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusUnprocessableEntity, "")
	default:
		h.log.ErrorContext(ctx, "drinks.store.fail", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "")
	}
}
