package i18n

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	cases := map[string]string{
		"":            "en",
		"C":           "en",
		"en":          "en",
		"en_US.UTF-8": "en",
		"ja":          "ja",
		"ja-JP":       "ja",
		"ja_JP.UTF-8": "ja",
		"xx-invalid!": "en",
	}
	for in, want := range cases {
		require.Equal(t, want, Match(in), "locale %q", in)
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	require := require.New(t)
	en := MustLoad("en")
	ja := MustLoad("ja")
	require.Equal("ja", ja.Lang())
	for key := range en.messages {
		require.True(ja.Has(key), "ja catalog is missing %q", key)
	}
	for key := range ja.messages {
		require.True(en.Has(key), "en catalog is missing %q", key)
	}
}

func TestT(t *testing.T) {
	require := require.New(t)
	c := MustLoad("en")

	require.Equal("Members", c.T("setting.member.title"))
	require.Equal("Alice was deleted.", c.T("setting.member.alert.delete_member", Params{"name": "Alice"}))
	require.Equal("Row 3", c.T("layouts.csv_error_results.row_number", Params{"row": "3"}))
	require.Equal("12 members were imported.", c.T("setting.member.alert.import_members", Params{"count": 12}))

	// Unknown keys fall back to the key itself.
	require.Equal("setting.member.no_such_code", c.T("setting.member.no_such_code"))
}
