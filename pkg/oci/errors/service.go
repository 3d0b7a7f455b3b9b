package errors

import (
	"errors"
	"net/http"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// IsNotAuthorizedOrNotFound checks if the API refused the call. OCI answers both
// missing permissions and missing resources with 404 NotAuthorizedOrNotFound,
// and expired credentials with 401.
func IsNotAuthorizedOrNotFound(err error) bool {
	if err == nil {
		return false
	}
	se, ok := serviceError(err)
	if !ok {
		return false
	}
	switch se.GetHTTPStatusCode() {
	case http.StatusUnauthorized, http.StatusNotFound:
		return true
	}
	return se.GetCode() == "NotAuthorizedOrNotFound" || se.GetCode() == "NotAuthenticated"
}

// IsThrottled checks if the API rejected the call with 429 TooManyRequests.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	se, ok := serviceError(err)
	if !ok {
		return false
	}
	return se.GetHTTPStatusCode() == http.StatusTooManyRequests || se.GetCode() == "TooManyRequests"
}

// RequestID returns the opc-request-id of a service error, for support tickets.
func RequestID(err error) string {
	se, ok := serviceError(err)
	if !ok {
		return ""
	}
	return se.GetOpcRequestID()
}

// serviceError unwraps err until it finds the SDK's service error; the SDK's own
// common.IsServiceError only inspects the outermost value.
func serviceError(err error) (common.ServiceError, bool) {
	var se common.ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
