package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	warperrors "github.com/mirkobrombin/go-redisdemo/v1/errors"
	"github.com/mirkobrombin/go-redisdemo/v1/logging"
)

type errorBody struct {
	Detail string `json:"detail"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, r, status, errorBody{Detail: detail})
}

// writeError maps err to a status and a client-safe detail. Unexpected
// errors are logged and reported as 500 without their text.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, warperrors.ErrEmailTaken):
		writeDetail(w, r, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, warperrors.ErrNotFound):
		writeDetail(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, warperrors.ErrInvalidArgument):
		writeDetail(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, warperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("store timeout")
		writeDetail(w, r, http.StatusGatewayTimeout, "Store timeout")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeDetail(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// badParam reports a missing or malformed query parameter.
type badParam struct {
	name string
	msg  string
}

func (e *badParam) Error() string { return "query parameter " + e.name + " " + e.msg }

func queryString(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", &badParam{name, "is required"}
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	s, err := queryString(r, name)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &badParam{name, "must be a number"}
	}
	return f, nil
}

func queryInt(r *http.Request, name string, def int64) (int64, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &badParam{name, "must be an integer"}
	}
	return n, nil
}

// queryDuration reads an integer count of unit. Counts that do not fit in a
// time.Duration are rejected; the sign is left for the caller to check.
func queryDuration(r *http.Request, name string, unit, def time.Duration) (time.Duration, error) {
	if !r.URL.Query().Has(name) {
		return def, nil
	}
	n, err := queryInt(r, name, 0)
	if err != nil {
		return 0, err
	}
	if limit := int64(math.MaxInt64 / unit); n > limit || n < -limit {
		return 0, &badParam{name, "is out of range"}
	}
	return time.Duration(n) * unit, nil
}

func queryDefault(r *http.Request, name, def string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return def
}

// decodeBody decodes a JSON request body into v. Numbers are kept as
// json.Number so their text survives.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &badBody{err}
	}
	return nil
}

type badBody struct{ err error }

func (e *badBody) Error() string { return "invalid request body: " + e.err.Error() }

// fail handles parameter and body errors, deferring everything
// else to writeError.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var bp *badParam
	if errors.As(err, &bp) {
		writeDetail(w, r, http.StatusBadRequest, bp.Error())
		return
	}
	var bb *badBody
	if errors.As(err, &bb) {
		writeDetail(w, r, http.StatusUnprocessableEntity, bb.Error())
		return
	}
	writeError(w, r, err)
}
