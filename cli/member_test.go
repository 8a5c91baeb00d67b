package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/member-admin/internal/config"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
)

const memberListJSON = `{"members":[
	{"id":1,"custom_id":"A-1","name":"Alice","email":"alice@example.com","place":"Tokyo",
	 "created_at":"2024-01-02T03:04:05Z","priority_created_at":"2020-05-01T09:00:00Z"},
	{"id":2,"name":"Bob","email":"bob@example.com","contract":"part-time",
	 "created_at":"2024-02-03T10:00:00Z"}],"left_count":4}`

// useServer points the inline --url flags at a test server running h.
func useServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	prevURL, prevID, prevTok, prevOut := flagURL, flagCompanyID, flagToken, flagOutput
	prevCfg, prevCatalog := resolvedConfig, catalog
	t.Cleanup(func() {
		flagURL, flagCompanyID, flagToken, flagOutput = prevURL, prevID, prevTok, prevOut
		resolvedConfig, catalog = prevCfg, prevCatalog
		apiClient = nil
	})
	flagURL, flagCompanyID, flagToken, flagOutput = srv.URL, 7, "tok", "table"
	resolvedConfig = &config.Config{}
	catalog = i18n.MustLoad("en")
}

func runCmd(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceErrors, cmd.SilenceUsage = true, true
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestMemberList(t *testing.T) {
	require := require.New(t)
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal("/api/v1/companies/7/members", r.URL.Path)
		io.WriteString(w, memberListJSON)
	})

	out, _, err := runCmd(t, memberListCmd(), "")
	require.NoError(err)
	require.Contains(out, "CREATED AT")
	require.Contains(out, "2020/05/01 09:00")
	require.Contains(out, "part-time")
	require.Contains(out, "You can add 4 more members.")

	flagOutput = "json"
	out, _, err = runCmd(t, memberListCmd(), "")
	require.NoError(err)
	var list model.MemberList
	require.NoError(json.Unmarshal([]byte(out), &list))
	require.Len(list.Members, 2)
}

func TestMemberCreateLocalizesValidation(t *testing.T) {
	require := require.New(t)
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	_, _, err := runCmd(t, memberCreateCmd(), "", "--name", "Dan")
	require.EqualError(err, "Email is required")

	catalog = i18n.MustLoad("ja")
	_, _, err = runCmd(t, memberCreateCmd(), "", "--email", "not-an-address")
	require.EqualError(err, "名前 を入力してください\nメールアドレス は不正な値です")
}

func TestMemberCreateServerFieldErrors(t *testing.T) {
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"invalid","errors":{"email":["taken"]}}`)
	})

	_, _, err := runCmd(t, memberCreateCmd(), "", "--name", "Dan", "--email", "dan@example.com")
	require.EqualError(t, err, "Email is already taken")
}

func TestMemberUpdateKeepsUnsetFields(t *testing.T) {
	require := require.New(t)
	var sent model.MemberInput
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			io.WriteString(w, memberListJSON)
		case http.MethodPut:
			require.Equal("/api/v1/members/1", r.URL.Path)
			require.NoError(json.NewDecoder(r.Body).Decode(&sent))
			io.WriteString(w, `{"id":1,"name":"Alice","email":"alice@example.com","place":"Osaka"}`)
		}
	})

	out, _, err := runCmd(t, memberUpdateCmd(), "", "1", "--place", "Osaka")
	require.NoError(err)
	require.Equal("Alice was updated.\n", out)
	require.Equal(model.MemberInput{CustomID: "A-1", Name: "Alice", Email: "alice@example.com", Place: "Osaka"}, sent)

	_, _, err = runCmd(t, memberUpdateCmd(), "", "99", "--place", "Osaka")
	require.ErrorContains(err, "not found")

	_, _, err = runCmd(t, memberUpdateCmd(), "", "abc")
	require.ErrorContains(err, "invalid member id")
}

func TestMemberDeleteConfirmation(t *testing.T) {
	require := require.New(t)
	deletes := 0
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			require.Equal("/api/v1/members/2", r.URL.Path)
			deletes++
			w.WriteHeader(http.StatusNoContent)
			return
		}
		io.WriteString(w, memberListJSON)
	})

	out, _, err := runCmd(t, memberDeleteCmd(), "n\n", "2")
	require.NoError(err)
	require.Contains(out, "Member: Bob <bob@example.com>")
	require.Contains(out, "Aborted.")
	require.Zero(deletes)

	out, _, err = runCmd(t, memberDeleteCmd(), "y\n", "2")
	require.NoError(err)
	require.Contains(out, "Bob was deleted.")
	require.Equal(1, deletes)
}

func TestMemberResetPassword(t *testing.T) {
	require := require.New(t)
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.Equal("/api/v1/members/1/password_reset", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		io.WriteString(w, memberListJSON)
	})

	out, _, err := runCmd(t, memberResetPasswordCmd(), "", "1", "--yes")
	require.NoError(err)
	require.Equal("A password reset email was sent to Alice.\n", out)
}

func TestMemberImport(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	require.NoError(os.WriteFile(good, []byte("name,email\na,a@example.com\nb,b@example.com\n"), 0600))
	tooMany := filepath.Join(dir, "many.csv")
	require.NoError(os.WriteFile(tooMany, []byte("name,email\na,a@x\nb,b@x\nc,c@x\nd,d@x\ne,e@x\n"), 0600))

	reject := false
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			io.WriteString(w, memberListJSON)
			return
		}
		if reject {
			w.WriteHeader(http.StatusUnprocessableEntity)
			io.WriteString(w, `{"csv_errors":{"3":["too_long"],"2":["blank","taken"]}}`)
			return
		}
		io.WriteString(w, `{"imported":2}`)
	})

	out, _, err := runCmd(t, memberImportCmd(), "", good)
	require.NoError(err)
	require.Equal("2 members were imported.\n", out)

	_, _, err = runCmd(t, memberImportCmd(), "", tooMany)
	require.EqualError(err, "The file has 5 members but only 4 more can be added.")

	reject = true
	_, errOut, err := runCmd(t, memberImportCmd(), "", good)
	require.ErrorContains(err, "2 rows have errors")
	require.Equal("Row 3\n  - is too long\nRow 2\n  - is required\n  - is already taken\n", errOut)

	_, _, err = runCmd(t, memberImportCmd(), "", filepath.Join(dir, "missing.csv"))
	require.ErrorContains(err, "Could not read")
}

func TestMask(t *testing.T) {
	require.Equal(t, "****", mask("abc"))
	require.Equal(t, "*******cret", mask("supersecret"))
}
