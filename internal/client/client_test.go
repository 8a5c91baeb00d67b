package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/member-admin/internal/config"
	"github.com/chupakbra/member-admin/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(&config.OrgConfig{URL: srv.URL, CompanyID: 7, Token: "tok"}, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(&config.OrgConfig{Token: "t", CompanyID: 1}, zerolog.Nop())
	require.Error(t, err)
	_, err = New(&config.OrgConfig{URL: "https://x", CompanyID: 1}, zerolog.Nop())
	require.Error(t, err)
	_, err = New(&config.OrgConfig{URL: "https://x", Token: "t"}, zerolog.Nop())
	require.Error(t, err)

	c, err := New(&config.OrgConfig{URL: "https://x/api/v1/", Token: "t", CompanyID: 3}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "https://x/api/v1", c.baseURL)
	require.Equal(t, int64(3), c.CompanyID())
}

func TestMembers(t *testing.T) {
	require := require.New(t)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(http.MethodGet, r.Method)
		require.Equal("/api/v1/companies/7/members", r.URL.Path)
		require.Equal("Bearer tok", r.Header.Get("Authorization"))
		require.NotEmpty(r.Header.Get("X-Request-ID"))
		io.WriteString(w, `{"members":[{"id":1,"custom_id":"A-1","name":"Alice","email":"a@example.com",
			"created_at":"2024-01-02T03:04:05Z","priority_created_at":"2020-01-01T00:00:00Z"}],"left_count":4}`)
	})

	list, err := c.Members(context.Background(), 7)
	require.NoError(err)
	require.Equal(4, list.LeftCount)
	require.Len(list.Members, 1)
	require.Equal("Alice", list.Members[0].Name)
	require.NotNil(list.Members[0].PriorityCreatedAt)
	require.Equal(2020, list.Members[0].DisplayCreatedAt().Year())
}

func TestCreateMemberValidationError(t *testing.T) {
	require := require.New(t)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(http.MethodPost, r.Method)
		require.Equal("application/json", r.Header.Get("Content-Type"))
		var in model.MemberInput
		require.NoError(json.NewDecoder(r.Body).Decode(&in))
		require.Equal("Bob", in.Name)
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"invalid","errors":{"email":["taken"]}}`)
	})

	_, err := c.CreateMember(context.Background(), 7, model.MemberInput{Name: "Bob", Email: "b@example.com"})
	require.Error(err)
	require.True(errors.Is(err, ErrInvalid))
	var apiErr *APIError
	require.True(errors.As(err, &apiErr))
	require.Equal([]string{"taken"}, apiErr.FieldErrors["email"])
	require.NotEmpty(apiErr.RequestID)
}

func TestUpdateMemberDropsPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/v1/members/9", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		require.NotContains(t, string(data), "password")
		io.WriteString(w, `{"id":9,"name":"Carol"}`)
	})
	m, err := c.UpdateMember(context.Background(), 9, model.MemberInput{Name: "Carol", Password: "x"})
	require.NoError(t, err)
	require.Equal(t, "Carol", m.Name)
}

func TestDeleteAndResetPassword(t *testing.T) {
	require := require.New(t)
	var calls []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.URL.Path == "/api/v1/members/404" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(c.DeleteMember(context.Background(), 1))
	require.NoError(c.ResetPassword(context.Background(), 2))
	err := c.DeleteMember(context.Background(), 404)
	require.True(errors.Is(err, ErrNotFound))
	require.Equal("api error 404: Not Found", err.Error())
	require.Equal([]string{
		"DELETE /api/v1/members/1",
		"POST /api/v1/members/2/password_reset",
		"DELETE /api/v1/members/404",
	}, calls)
}

func TestImportMembersCSVErrors(t *testing.T) {
	require := require.New(t)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal("text/csv", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		if strings.Contains(string(data), "bad") {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"csv_errors":{"5":["missing"],"3":["too_long"]}}`)
			return
		}
		io.WriteString(w, `{"imported":2}`)
	})

	res, err := c.ImportMembers(context.Background(), 7, strings.NewReader("name,email\na,a@x\nb,b@x\n"))
	require.NoError(err)
	require.Equal(2, res.Imported)

	_, err = c.ImportMembers(context.Background(), 7, strings.NewReader("name,email\nbad,\n"))
	var apiErr *APIError
	require.True(errors.As(err, &apiErr))
	require.Equal(model.CSVErrors{
		{Row: "5", Codes: []string{"missing"}},
		{Row: "3", Codes: []string{"too_long"}},
	}, apiErr.CSVErrors)
}

func TestServerErrorWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Company(context.Background(), 7)
	require.True(t, errors.Is(err, ErrServer))
	require.False(t, errors.Is(err, ErrNotFound))
}
