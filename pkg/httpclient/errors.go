package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
)

// downstreamError mirrors the httputil error envelope of platform services.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response
// and maps it onto an AppError, keeping the downstream message when the
// body is a standard error envelope.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Upstream(serviceName+" unreadable error response", err)
	}

	message := string(body)
	var downstream downstreamError
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		message = downstream.Error.Message
	}
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound(serviceName+" resource", message)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualified)
	case resp.StatusCode == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return apperrors.Unauthorized(qualified)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualified, nil)
	default:
		return apperrors.Upstream(qualified, fmt.Errorf("status %d", resp.StatusCode))
	}
}

// IsSuccess reports a 2xx status.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
