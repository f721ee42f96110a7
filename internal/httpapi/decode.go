package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"medsys.org/internal/result"
)

// decodeJSON reads exactly one JSON value from the body. Size is capped by
// the MaxBodyBytes middleware.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// decodeOrReject decodes the body and answers 400 when it cannot.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		badRequest(w, result.NewBuilder().Add(result.BadRequest.String(), err.Error()))
		return false
	}
	return true
}

func requiredField(b *result.Builder, key, value string) {
	if value == "" {
		b.Add(key, "The "+key+" field is required.")
	}
}
