// Package handler provides HTTP handlers for the FileGrid API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/filegrid/filegrid/internal/access"
	"github.com/filegrid/filegrid/internal/api/middleware"
	"github.com/filegrid/filegrid/internal/api/response"
)

// Actor retrieves the authenticated actor from the context. The zero
// actor is returned on unauthenticated requests, which only reach
// handlers on public routes.
func Actor(ctx context.Context) access.Actor {
	actor, _ := middleware.GetActor(ctx)
	return actor
}

// decodeJSON parses the request body into dst. On failure it writes a
// 400 and returns false; the handler should return immediately.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return false
	}
	return true
}

// pathID parses a numeric URL parameter. On failure it writes a 400 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, r, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// queryBool reads a boolean query parameter, defaulting to false.
func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
