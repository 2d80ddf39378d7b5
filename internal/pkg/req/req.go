/*
Package req provides helpers for HTTP request parsing and data binding.

It enforces strict JSON decoding (unknown fields and trailing content are
rejected) so malformed client payloads fail fast with a typed error.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"edulive/internal/pkg/errs"
)

// BindJSON binds the JSON request body to dst, rejecting unknown fields and
// trailing content. It returns a typed error suitable for resp.RespondError.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
