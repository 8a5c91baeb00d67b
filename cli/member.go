package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/member-admin/internal/actions"
	"github.com/chupakbra/member-admin/internal/client"
	"github.com/chupakbra/member-admin/internal/i18n"
	"github.com/chupakbra/member-admin/internal/model"
	"github.com/chupakbra/member-admin/internal/viewstate"
)

func memberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "member",
		Aliases: []string{"members"},
		Short:   "Manage organization members",
	}
	cmd.AddCommand(memberListCmd())
	cmd.AddCommand(memberCreateCmd())
	cmd.AddCommand(memberUpdateCmd())
	cmd.AddCommand(memberDeleteCmd())
	cmd.AddCommand(memberResetPasswordCmd())
	cmd.AddCommand(memberImportCmd())
	return cmd
}

// memberListCmd lists the members of the organization.
func memberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all members",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Loading members...")
			list, err := actions.ListMembers(ctx, apiClient, apiClient.CompanyID())
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, list)
			}
			printMembers(cmd, list)
			return nil
		},
	}
}

func printMembers(cmd *cobra.Command, list model.MemberList) {
	out := cmd.OutOrStdout()
	if len(list.Members) == 0 {
		emptyNotice(cmd, catalog.T("setting.member.empty"))
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "#\t%s\t%s\t%s\t%s\t%s\t%s\n",
			strings.ToUpper(catalog.T("model.member.custom_id")),
			strings.ToUpper(catalog.T("model.member.name")),
			strings.ToUpper(catalog.T("model.member.email")),
			strings.ToUpper(catalog.T("model.member_detail.contract")),
			strings.ToUpper(catalog.T("model.member_detail.place")),
			strings.ToUpper(catalog.T("model.member.created_at")))
		for _, m := range list.Members {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
				m.ID, dash(m.CustomID), m.Name, m.Email, dash(m.Contract), dash(m.Place),
				viewstate.FormatCreatedAt(m, catalog))
		}
		w.Flush() //nolint:errcheck
	}
	fmt.Fprintln(out, catalog.T("setting.member_modal.new_multi_members.left_count", i18n.Params{"count": list.LeftCount}))
}

// memberFlags binds the form fields shared by create and update.
type memberFlags struct {
	customID string
	name     string
	email    string
	contract string
	place    string
	password string
}

func (f *memberFlags) register(cmd *cobra.Command, withPassword bool) {
	cmd.Flags().StringVar(&f.customID, "custom-id", "", "organization-specific member id")
	cmd.Flags().StringVar(&f.name, "name", "", "display name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.contract, "contract", "", "contract type")
	cmd.Flags().StringVar(&f.place, "place", "", "place of work")
	if withPassword {
		cmd.Flags().StringVar(&f.password, "password", "", "initial password (optional)")
	}
}

// apply overwrites the fields of in whose flags were set on the command line.
func (f *memberFlags) apply(cmd *cobra.Command, in model.MemberInput) model.MemberInput {
	set := func(flag string, dst *string, v string) {
		if cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	set("custom-id", &in.CustomID, f.customID)
	set("name", &in.Name, f.name)
	set("email", &in.Email, f.email)
	set("contract", &in.Contract, f.contract)
	set("place", &in.Place, f.place)
	set("password", &in.Password, f.password)
	return in
}

// memberCreateCmd registers a new member.
func memberCreateCmd() *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a new member",
		Example: `  mbr member create --name "Alice Smith" --email alice@example.com --custom-id A-0001`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Creating member...")
			m, err := actions.CreateMember(ctx, apiClient, apiClient.CompanyID(), f.apply(cmd, model.MemberInput{}))
			s.Stop()
			if err != nil {
				return memberErr(err)
			}
			if flagOutput == "json" {
				return jsonOut(cmd, m)
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.T("setting.member.alert.create_member", i18n.Params{"name": m.Name}))
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

// memberUpdateCmd edits a member. Only the flags given are changed.
func memberUpdateCmd() *cobra.Command {
	var f memberFlags
	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Update a member",
		Example: `  mbr member update 42 --place Osaka`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Updating member...")
			current, err := findMember(ctx, id)
			if err != nil {
				s.Stop()
				return handleErr(err)
			}
			m, err := actions.UpdateMember(ctx, apiClient, id, f.apply(cmd, model.InputFrom(current)))
			s.Stop()
			if err != nil {
				return memberErr(err)
			}
			if flagOutput == "json" {
				return jsonOut(cmd, m)
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.T("setting.member.alert.update_member", i18n.Params{"name": m.Name}))
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

// memberDeleteCmd deletes a member after confirmation.
func memberDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			target, err := findMember(ctx, id)
			if err != nil {
				return handleErr(err)
			}
			if !yes && !confirm(cmd, "setting.member_modal.confirm_delete_member.", target) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			s := startSpinner("Deleting member...")
			err = actions.DeleteMember(ctx, apiClient, id)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.T("setting.member.alert.delete_member", i18n.Params{"name": target.Name}))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

// memberResetPasswordCmd sends a member a password reset email.
func memberResetPasswordCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-password <id>",
		Short: "Send a password reset email to a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMemberID(args[0])
			if err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			target, err := findMember(ctx, id)
			if err != nil {
				return handleErr(err)
			}
			if !yes && !confirm(cmd, "setting.member_modal.confirm_reset_password.", target) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			s := startSpinner("Sending password reset...")
			err = actions.ResetPassword(ctx, apiClient, id)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.T("setting.member.alert.reset_password", i18n.Params{"name": target.Name}))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

// memberImportCmd uploads a CSV file of members.
func memberImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import members from a CSV file",
		Long: `Import members from a CSV file with a header row.

The file is checked against the organization's remaining member quota before
it is uploaded. Rows the server rejects are listed by row number.`,
		Example: `  mbr member import members.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.New(catalog.T("setting.member_modal.new_multi_members.unreadable", i18n.Params{"path": path}))
			}
			rows, err := actions.CountCSVRows(data)
			if err != nil {
				return err
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			ctx := context.Background()
			s := startSpinner("Checking member quota...")
			list, err := actions.ListMembers(ctx, apiClient, apiClient.CompanyID())
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			if list.LeftCount <= 0 {
				return errors.New(catalog.T("setting.member.over_limit_count"))
			}
			if rows > list.LeftCount {
				return errors.New(catalog.T("setting.member_modal.new_multi_members.too_many_rows",
					i18n.Params{"rows": rows, "count": list.LeftCount}))
			}

			s = startSpinner(fmt.Sprintf("Importing %d members...", rows))
			res, err := actions.ImportMembers(ctx, apiClient, apiClient.CompanyID(), data)
			s.Stop()
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && len(apiErr.CSVErrors) > 0 {
					printCSVErrors(cmd, apiErr.CSVErrors)
					return fmt.Errorf("import rejected: %d rows have errors", len(apiErr.CSVErrors))
				}
				return handleErr(err)
			}
			if flagOutput == "json" {
				return jsonOut(cmd, res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), catalog.T("setting.member.alert.import_members", i18n.Params{"count": res.Imported}))
			return nil
		},
	}
}

func printCSVErrors(cmd *cobra.Command, errs model.CSVErrors) {
	w := cmd.ErrOrStderr()
	for _, row := range viewstate.ProjectCSVErrors(errs, catalog) {
		fmt.Fprintln(w, colorize(viewstate.RowLabel(row.Row, catalog), colorRed, stderrIsTerminal()))
		for _, msg := range row.Messages {
			fmt.Fprintf(w, "  - %s\n", msg)
		}
	}
}

// memberErr localizes form validation errors; everything else goes through handleErr.
func memberErr(err error) error {
	fields := fieldErrorsOf(err)
	if len(fields) == 0 {
		return handleErr(err)
	}
	var parts []string
	for _, field := range actions.FieldOrder() {
		for _, code := range fields[field] {
			parts = append(parts, catalog.T(fieldLabelKey(field))+" "+catalog.T("setting.member."+code))
		}
	}
	return errors.New(strings.Join(parts, "\n"))
}

func fieldErrorsOf(err error) model.FieldErrors {
	var verr *actions.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.FieldErrors
	}
	return nil
}

func fieldLabelKey(field string) string {
	switch field {
	case "contract", "place":
		return "model.member_detail." + field
	}
	return "model.member." + field
}

func parseMemberID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid member id %q: must be a positive number", s)
	}
	return id, nil
}

// findMember looks a member up in the organization's list.
func findMember(ctx context.Context, id int64) (model.Member, error) {
	list, err := actions.ListMembers(ctx, apiClient, apiClient.CompanyID())
	if err != nil {
		return model.Member{}, err
	}
	for _, m := range list.Members {
		if m.ID == id {
			return m, nil
		}
	}
	return model.Member{}, fmt.Errorf("member %d: %w", id, client.ErrNotFound)
}

// confirm shows the confirmation text under prefix for target and reads y/N from stdin.
func confirm(cmd *cobra.Command, prefix string, target model.Member) bool {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, catalog.T(prefix+"title"))
	fmt.Fprintf(out, "%s %s <%s>\n", catalog.T(prefix+"member_header"), target.Name, target.Email)
	fmt.Fprintf(out, "%s [y/N]: ", catalog.T(prefix+"confirm"))
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
