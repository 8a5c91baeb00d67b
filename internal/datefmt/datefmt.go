// Package datefmt renders timestamps with strftime-style patterns taken from
// the message catalogs.
package datefmt

import (
	"time"

	"github.com/ncruces/go-strftime"
)

// Empty is rendered for zero timestamps.
const Empty = "-"

// Format renders t with a strftime pattern such as "%Y/%m/%d %H:%M".
func Format(t time.Time, pattern string) string {
	if t.IsZero() {
		return Empty
	}
	return strftime.Format(pattern, t)
}
