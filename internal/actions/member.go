package actions

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/chupakbra/member-admin/internal/model"
)

// API is the subset of the member API used by the actions. *client.Client
// implements it.
type API interface {
	Members(ctx context.Context, companyID int64) (model.MemberList, error)
	CreateMember(ctx context.Context, companyID int64, in model.MemberInput) (model.Member, error)
	UpdateMember(ctx context.Context, id int64, in model.MemberInput) (model.Member, error)
	DeleteMember(ctx context.Context, id int64) error
	ResetPassword(ctx context.Context, id int64) error
	ImportMembers(ctx context.Context, companyID int64, csv io.Reader) (model.ImportResult, error)
}

var (
	ErrInvalidMemberID  = errors.New("invalid member id")
	ErrInvalidCompanyID = errors.New("invalid company id")
	ErrEmptyImport      = errors.New("csv file has no member rows")
)

// ValidationError reports form fields rejected before any request is sent.
type ValidationError struct {
	Fields model.FieldErrors
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, f := range fieldOrder {
		if codes, ok := e.Fields[f]; ok {
			parts = append(parts, f+" "+strings.Join(codes, ", "))
		}
	}
	return "invalid member: " + strings.Join(parts, "; ")
}

// fieldOrder is the order fields appear in the form.
var fieldOrder = []string{"custom_id", "name", "email", "contract", "place", "password"}

// FieldOrder returns the form field names in display order.
func FieldOrder() []string {
	out := make([]string, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

const maxFieldLen = 255

// ValidateMember trims in and checks the fields the server would reject
// outright. The returned input is what should be sent.
func ValidateMember(in model.MemberInput) (model.MemberInput, model.FieldErrors) {
	in.CustomID = strings.TrimSpace(in.CustomID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Contract = strings.TrimSpace(in.Contract)
	in.Place = strings.TrimSpace(in.Place)

	errs := model.FieldErrors{}
	if in.Name == "" {
		errs["name"] = append(errs["name"], "blank")
	}
	if in.Email == "" {
		errs["email"] = append(errs["email"], "blank")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		errs["email"] = append(errs["email"], "invalid")
	}
	for field, v := range map[string]string{
		"custom_id": in.CustomID, "name": in.Name, "email": in.Email,
		"contract": in.Contract, "place": in.Place,
	} {
		if len(v) > maxFieldLen {
			errs[field] = append(errs[field], "too_long")
		}
	}
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

func ListMembers(ctx context.Context, api API, companyID int64) (model.MemberList, error) {
	if companyID <= 0 {
		return model.MemberList{}, ErrInvalidCompanyID
	}
	list, err := api.Members(ctx, companyID)
	if err != nil {
		return model.MemberList{}, fmt.Errorf("listing members: %w", err)
	}
	return list, nil
}

func CreateMember(ctx context.Context, api API, companyID int64, in model.MemberInput) (model.Member, error) {
	if companyID <= 0 {
		return model.Member{}, ErrInvalidCompanyID
	}
	in, errs := ValidateMember(in)
	if errs != nil {
		return model.Member{}, &ValidationError{Fields: errs}
	}
	m, err := api.CreateMember(ctx, companyID, in)
	if err != nil {
		return model.Member{}, fmt.Errorf("creating member: %w", err)
	}
	return m, nil
}

func UpdateMember(ctx context.Context, api API, id int64, in model.MemberInput) (model.Member, error) {
	if id <= 0 {
		return model.Member{}, ErrInvalidMemberID
	}
	in, errs := ValidateMember(in)
	if errs != nil {
		return model.Member{}, &ValidationError{Fields: errs}
	}
	m, err := api.UpdateMember(ctx, id, in)
	if err != nil {
		return model.Member{}, fmt.Errorf("updating member %d: %w", id, err)
	}
	return m, nil
}

func DeleteMember(ctx context.Context, api API, id int64) error {
	if id <= 0 {
		return ErrInvalidMemberID
	}
	if err := api.DeleteMember(ctx, id); err != nil {
		return fmt.Errorf("deleting member %d: %w", id, err)
	}
	return nil
}

func ResetPassword(ctx context.Context, api API, id int64) error {
	if id <= 0 {
		return ErrInvalidMemberID
	}
	if err := api.ResetPassword(ctx, id); err != nil {
		return fmt.Errorf("resetting password of member %d: %w", id, err)
	}
	return nil
}

// ImportMembers uploads a CSV file after checking it parses and has rows.
func ImportMembers(ctx context.Context, api API, companyID int64, data []byte) (model.ImportResult, error) {
	if companyID <= 0 {
		return model.ImportResult{}, ErrInvalidCompanyID
	}
	rows, err := CountCSVRows(data)
	if err != nil {
		return model.ImportResult{}, err
	}
	if rows == 0 {
		return model.ImportResult{}, ErrEmptyImport
	}
	res, err := api.ImportMembers(ctx, companyID, bytes.NewReader(data))
	if err != nil {
		return model.ImportResult{}, fmt.Errorf("importing members: %w", err)
	}
	return res, nil
}

// CountCSVRows returns the number of non-empty data rows in a CSV file with a
// header row.
func CountCSVRows(data []byte) (int, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM from spreadsheet exports
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading csv header: %w", err)
	}
	n := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, fmt.Errorf("reading csv: %w", err)
		}
		if blankRow(row) {
			continue
		}
		n++
	}
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
