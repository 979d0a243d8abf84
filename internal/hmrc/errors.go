package hmrc

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError carries a non-2xx response from the sandbox verbatim so the UI
// can show exactly what HMRC said.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hmrc api error: status %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is an HMRC 401, meaning the access
// token was rejected and the user has to sign in again.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
