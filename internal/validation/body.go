package validation

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/Simplici0/recipecost/internal/apperr"
)

// DecodeJSONBody decodes a JSON request body into dest, rejecting unknown
// fields, and then validates dest.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apperr.Wrap(apperr.CodeValidation, err, "invalid request body").
			WithDetails(map[string]string{"body": err.Error()})
	}
	return Struct(dest)
}
