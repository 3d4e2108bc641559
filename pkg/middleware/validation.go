// pkg/middleware/validation.go

package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"gigmarket/pkg/response"

	"github.com/go-playground/validator/v10"
)

const maxBodySize = 1 << 20 // 1 MB

// ValidateRequest rejects non-JSON or empty POST/PUT bodies and caps the body size.
func ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				response.Error(w, http.StatusBadRequest, "Invalid Content-Type, expected application/json")
				return
			}

			if r.ContentLength == 0 {
				response.Error(w, http.StatusBadRequest, "Request body cannot be empty")
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

		next.ServeHTTP(w, r)
	})
}

// HandleValidationError writes a 400 naming the first failing field.
func HandleValidationError(w http.ResponseWriter, err error) {
	log.Printf("Validation error: %v", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		msg := fmt.Sprintf("%s is required", field)
		if fe.Tag() != "required" {
			msg = fmt.Sprintf("%s is invalid", field)
		}
		response.FieldError(w, msg, field, fe.Value())
		return
	}

	response.Error(w, http.StatusBadRequest, err.Error())
}
