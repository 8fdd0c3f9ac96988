package middleware

import (
	"net/http"

	"github.com/evoting-dev/evoting/internal/errors"
)

func errUnauthorized(message string) error {
	return &errors.ErrorWithStatusCode{Message: message, StatusCode: http.StatusUnauthorized}
}

func errForbidden(message string) error {
	return &errors.ErrorWithStatusCode{Message: message, StatusCode: http.StatusForbidden}
}
