package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chupakbra/member-admin/internal/config"
)

func TestTUIOptionsOrganization(t *testing.T) {
	require := require.New(t)
	prevOrg, prevIntro := flagOrg, flagFinishIntro
	t.Cleanup(func() { flagOrg, flagFinishIntro = prevOrg, prevIntro })

	t.Setenv(config.EnvOrg, "from-env")
	t.Setenv(config.EnvFinishIntro, "")
	flagOrg, flagFinishIntro = "", false
	opts := tuiOptions()
	require.Equal("from-env", opts.Org)
	require.False(opts.FinishIntro)

	flagOrg = "from-flag"
	require.Equal("from-flag", tuiOptions().Org)

	t.Setenv(config.EnvOrg, "")
	flagOrg = ""
	t.Setenv(config.EnvFinishIntro, "1")
	opts = tuiOptions()
	require.Empty(opts.Org)
	require.True(opts.FinishIntro)
}
