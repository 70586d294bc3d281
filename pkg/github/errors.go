package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"
)

// APIError represents a GitHub API error response
type APIError struct {
	StatusCode int
	Message    string
	Errors     []APIErrorDetail `json:"errors,omitempty"`
}

// APIErrorDetail represents individual error details from GitHub
type APIErrorDetail struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Error returns the error message
func (e *APIError) Error() string {
	msg := e.Message
	var details []string
	for _, d := range e.Errors {
		if d.Message != "" {
			details = append(details, d.Message)
		} else if d.Code != "" {
			details = append(details, fmt.Sprintf("%s %s", d.Field, d.Code))
		}
	}
	if len(details) > 0 {
		msg = strings.TrimSpace(msg + ": " + strings.Join(details, "; "))
	}
	if msg != "" {
		return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("GitHub API error (status %d)", e.StatusCode)
}

// wrapError converts go-github error responses into *APIError and leaves
// transport errors untouched.
func wrapError(err error) error {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return err
	}

	apiErr := &APIError{
		StatusCode: ghErr.Response.StatusCode,
		Message:    ghErr.Message,
	}
	for _, e := range ghErr.Errors {
		apiErr.Errors = append(apiErr.Errors, APIErrorDetail{
			Resource: e.Resource,
			Field:    e.Field,
			Code:     e.Code,
			Message:  e.Message,
		})
	}
	return apiErr
}

func statusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFoundError returns true if the error is a not found error
func IsNotFoundError(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// IsAuthenticationError returns true if the error is an authentication error
func IsAuthenticationError(err error) bool {
	code := statusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// IsValidationError reports a 422 response, which GitHub returns for
// duplicate pull requests and unknown branches.
func IsValidationError(err error) bool {
	return statusCode(err) == http.StatusUnprocessableEntity
}
