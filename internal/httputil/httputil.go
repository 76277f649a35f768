package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Parse fills v, a pointer to a struct, from the request. A JSON body is
// decoded first; fields tagged `path:"name"` (chi URL params) and
// `form:"name"` (query string) are then set from the URL and win over the
// body. A value that does not convert to its field's kind is an error.
func Parse(r *http.Request, v any) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return errors.New("httputil: Parse needs a non-nil struct pointer")
	}

	if err := decodeBody(r, v); err != nil {
		return err
	}

	val = val.Elem()
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		name, raw, ok := urlValue(r, typ.Field(i))
		if !ok {
			continue
		}
		if err := setField(field, raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}
	return nil
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// urlValue returns the raw URL value for a tagged field, if one was sent.
func urlValue(r *http.Request, f reflect.StructField) (name, raw string, ok bool) {
	if tag := f.Tag.Get("path"); tag != "" {
		if raw = chi.URLParam(r, tag); raw != "" {
			return tag, raw, true
		}
	}
	if tag := f.Tag.Get("form"); tag != "" {
		if raw = r.URL.Query().Get(tag); raw != "" {
			return tag, raw, true
		}
	}
	return "", "", false
}

func setField(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return errors.New("not an integer")
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return errors.New("not an unsigned integer")
		}
		field.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.New("not a boolean")
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes v with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Success writes data in a successful envelope with 200 OK status
func Success(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// Error writes a 400 envelope for a request that could not be parsed
func Error(w http.ResponseWriter, err error) {
	ErrorWithCode(w, http.StatusBadRequest, err.Error())
}

// ErrorWithCode writes a failed envelope with a specific status code
func ErrorWithCode(w http.ResponseWriter, code int, message string) {
	if message == "" {
		message = strings.ToLower(http.StatusText(code))
	}
	WriteJSON(w, code, Response{Success: false, Error: message})
}

// NotFound writes a 404 envelope
func NotFound(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusNotFound, message)
}
