package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/chupakbra/member-admin/internal/actions"
	"github.com/chupakbra/member-admin/internal/client"
)

// Handle maps API and transport errors to friendly user-facing messages and
// returns a formatted error that Cobra will print before exiting with code 1.
func Handle(orgURL string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case stderrors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("not authorized — check the API token for this organization")
	case stderrors.Is(err, client.ErrForbidden):
		return fmt.Errorf("permission denied — your account does not have access to perform this operation")
	case stderrors.Is(err, client.ErrNotFound):
		return fmt.Errorf("not found — the requested member does not exist")
	case stderrors.Is(err, client.ErrInvalid):
		return fmt.Errorf("rejected by the server: %s", describeInvalid(err))
	case stderrors.Is(err, client.ErrRateLimited):
		return fmt.Errorf("too many requests — wait a moment and try again")
	case stderrors.Is(err, client.ErrServer):
		return fmt.Errorf("the member service failed (%s) — try again later", requestRef(err))
	case stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return fmt.Errorf("the operation timed out — check the member service is reachable")
	case isConnectionError(err):
		if orgURL != "" {
			return fmt.Errorf("could not connect to %s — check the organization URL and your network", orgURL)
		}
		return fmt.Errorf("could not connect to the member service — check the organization URL and your network")
	default:
		return err
	}
}

func describeInvalid(err error) string {
	var apiErr *client.APIError
	if !stderrors.As(err, &apiErr) {
		return err.Error()
	}
	var parts []string
	for _, field := range invalidFieldOrder(apiErr) {
		parts = append(parts, field+" "+strings.Join(apiErr.FieldErrors[field], ", "))
	}
	for _, row := range apiErr.CSVErrors {
		parts = append(parts, "row "+row.Row+": "+strings.Join(row.Codes, ", "))
	}
	if len(parts) == 0 {
		return apiErr.Message
	}
	return strings.Join(parts, "; ")
}

// invalidFieldOrder lists the rejected fields in form order, followed by
// any the form does not know about, sorted.
func invalidFieldOrder(apiErr *client.APIError) []string {
	var fields []string
	for _, field := range actions.FieldOrder() {
		if _, ok := apiErr.FieldErrors[field]; ok {
			fields = append(fields, field)
		}
	}
	for _, field := range slices.Sorted(maps.Keys(apiErr.FieldErrors)) {
		if !slices.Contains(fields, field) {
			fields = append(fields, field)
		}
	}
	return fields
}

func requestRef(err error) string {
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) && apiErr.RequestID != "" {
		return fmt.Sprintf("status %d, request %s", apiErr.Status, apiErr.RequestID)
	}
	return "no response"
}

func isTimeout(err error) bool {
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "EOF")
}
