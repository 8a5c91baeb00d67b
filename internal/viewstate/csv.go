package viewstate

import (
	"github.com/chupakbra/member-admin/internal/datefmt"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
)

// CSVErrorMessage is one rejected CSV row with its localized messages.
type CSVErrorMessage struct {
	Row      string
	Messages []string
}

// ProjectCSVErrors localizes import errors, keeping the order the server sent
// the rows in.
func ProjectCSVErrors(errs model.CSVErrors, t Translator) []CSVErrorMessage {
	if len(errs) == 0 {
		return nil
	}
	out := make([]CSVErrorMessage, 0, len(errs))
	for _, row := range errs {
		msgs := make([]string, len(row.Codes))
		for i, code := range row.Codes {
			msgs[i] = t.T("setting.member." + code)
		}
		out = append(out, CSVErrorMessage{Row: row.Row, Messages: msgs})
	}
	return out
}

// RowLabel is the heading shown above a row's messages.
func RowLabel(row string, t Translator) string {
	return t.T("layouts.csv_error_results.row_number", i18n.Params{"row": row})
}

// FormatCreatedAt renders the member's display timestamp with the catalog's
// date-time pattern.
func FormatCreatedAt(m model.Member, t Translator) string {
	return datefmt.Format(m.DisplayCreatedAt(), t.T("time.date.formats.with_time"))
}
