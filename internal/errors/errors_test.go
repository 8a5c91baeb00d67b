package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chupakbra/member-admin/internal/client"
	"github.com/chupakbra/member-admin/internal/model"
)

func TestHandle(t *testing.T) {
	plain := stderrors.New("boom")
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unauthorized", &client.APIError{Status: 401}, "not authorized"},
		{"forbidden", &client.APIError{Status: 403}, "permission denied"},
		{"not found", fmt.Errorf("deleting: %w", &client.APIError{Status: 404}), "not found"},
		{"field errors", &client.APIError{Status: 422, FieldErrors: model.FieldErrors{"email": {"taken"}}}, "email taken"},
		{"csv errors", &client.APIError{Status: 422, CSVErrors: model.CSVErrors{{Row: "3", Codes: []string{"too_long"}}}}, "row 3: too_long"},
		{"rate limited", &client.APIError{Status: 429}, "too many requests"},
		{"server", &client.APIError{Status: 503, RequestID: "abc"}, "request abc"},
		{"deadline", context.DeadlineExceeded, "timed out"},
		{"connection", &url.Error{Op: "Get", URL: "https://x", Err: stderrors.New("connection refused")}, "could not connect to https://members.example.com"},
		{"passthrough", plain, "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Handle("https://members.example.com", tc.err)
			if tc.want == "" {
				require.NoError(t, got)
				return
			}
			require.Error(t, got)
			require.Contains(t, got.Error(), tc.want)
		})
	}
}

func TestHandleListsFieldErrorsInFormOrder(t *testing.T) {
	err := &client.APIError{Status: 422, FieldErrors: model.FieldErrors{
		"zone":     {"unknown"},
		"password": {"too_short"},
		"email":    {"taken", "invalid"},
		"base":     {"locked"},
		"name":     {"blank"},
	}}
	for range 5 {
		require.EqualError(t, Handle("", err),
			"rejected by the server: name blank; email taken, invalid; password too_short; base locked; zone unknown")
	}
}
