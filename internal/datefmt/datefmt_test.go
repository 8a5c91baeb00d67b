package datefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	ts := time.Date(2023, 4, 5, 9, 7, 0, 0, time.UTC)
	require.Equal(t, "2023/04/05 09:07", Format(ts, "%Y/%m/%d %H:%M"))
	require.Equal(t, "2023年04月05日 09:07", Format(ts, "%Y年%m月%d日 %H:%M"))
	require.Equal(t, Empty, Format(time.Time{}, "%Y"))
}
