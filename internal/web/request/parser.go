// Package request decodes and validates JSON request bodies and path
// parameters.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-dev/inkwell/internal/validation"
	"github.com/inkwell-dev/inkwell/internal/web/response"
)

// MaxBodyBytes limits request bodies
const MaxBodyBytes = 1 << 20

// Decode reads a JSON body into dst. An empty body leaves dst untouched so
// that required-field validation reports the missing fields. Unknown fields
// are ignored. Type mismatches are reported per field.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return validation.Single(typeErr.Field, typeMessage(typeErr.Type))
	case errors.As(err, &maxErr):
		return &response.APIError{Status: http.StatusRequestEntityTooLarge, Detail: "Request body too large."}
	}
	return response.BadRequest("JSON parse error - " + err.Error())
}

func typeMessage(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Bool:
		return "Must be a valid boolean."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice, reflect.Array:
		return "Expected a list of items."
	case reflect.Ptr:
		return typeMessage(t.Elem())
	}
	return "Invalid value."
}

// Bind decodes the body into dst and validates it
func Bind(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := Decode(w, r, dst); err != nil {
		return err
	}
	return validation.Validate(dst)
}

// ID returns the positive integer path parameter name. Anything else is
// treated as an unknown route and reported as 404.
func ID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, response.ErrNotFound
	}
	return id, nil
}
