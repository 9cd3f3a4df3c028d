package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	apierrors "github.com/maruel/tabledb/internal/errors"
)

// maxBody bounds request bodies.
const maxBody = 8 << 20

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters can be extracted by tagging struct fields with `path:"name"`
// and query parameters with `query:"name"`.
//
// Example:
//
//	type PullRequest struct {
//	    Table string `path:"table"`
//	    Where string `query:"where"`
//	}
//
//	func (h *TableHandler) PullRecords(ctx context.Context, req PullRequest) (*PullResponse, error)
func Wrap[In any, Out any](fn func(context.Context, In) (*Out, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err2 := r.Body.Close(); err == nil {
			err = err2
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read request body", "err", err)
			writeError(ctx, w, apierrors.BadRequest("Failed to read request body"))
			return
		}
		if len(body) > maxBody {
			writeError(ctx, w, apierrors.BadRequest("Request body too large"))
			return
		}
		var input In
		if len(bytes.TrimSpace(body)) > 0 {
			d := json.NewDecoder(bytes.NewReader(body))
			d.DisallowUnknownFields()
			d.UseNumber()
			if err := d.Decode(&input); err != nil {
				writeError(ctx, w, apierrors.BadRequest("Invalid request body").Wrap(err))
				return
			}
		}

		populatePathParams(r, &input)
		populateQueryParams(r, &input)

		output, err := fn(ctx, input)
		if err != nil {
			writeError(ctx, w, apierrors.FromError(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err)
		}
	})
}

// populatePathParams sets string fields tagged with `path:"name"`.
func populatePathParams(r *http.Request, input any) {
	elem, ok := structOf(input)
	if !ok {
		return
	}
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

// populateQueryParams sets string and int fields tagged with `query:"name"`.
func populateQueryParams(r *http.Request, input any) {
	elem, ok := structOf(input)
	if !ok {
		return
	}
	query := r.URL.Query()
	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("query")
		if tag == "" {
			continue
		}
		v := query.Get(tag)
		if v == "" {
			continue
		}
		//nolint:exhaustive // Only string and int are supported for query params.
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(v)
		case reflect.Int:
			if n, err := strconv.Atoi(v); err == nil {
				elem.Field(i).SetInt(int64(n))
			}
		default:
		}
	}
}

func structOf(input any) (reflect.Value, bool) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Ptr {
		return reflect.Value{}, false
	}
	elem := val.Elem()
	return elem, elem.Kind() == reflect.Struct
}

// writeError writes an error response as JSON with code and details.
func writeError(ctx context.Context, w http.ResponseWriter, e apierrors.ErrorWithStatus) {
	if e.StatusCode() >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", e, "code", e.Code())
	} else {
		slog.DebugContext(ctx, "Request rejected", "err", e, "code", e.Code())
	}
	response := map[string]any{
		"error": map[string]any{
			"code":    e.Code(),
			"message": e.Error(),
		},
	}
	if d := e.Details(); len(d) > 0 {
		response["details"] = d
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	_ = json.NewEncoder(w).Encode(response)
}
