package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/adconsole/api"
)

// listFlags are the paging and filter flags shared by list commands.
type listFlags struct {
	page    int
	perPage int
	filters []string
}

func (f *listFlags) register(c *cobra.Command) {
	c.Flags().IntVar(&f.page, "page", 0, "Page number (default 1)")
	c.Flags().IntVar(&f.perPage, "per-page", 0, "Items per page (default 20, max 100)")
	c.Flags().StringArrayVar(&f.filters, "filter", nil, "Filter as key=value, repeatable")
}

// path renders the list as a console page path.
func (f *listFlags) path(base string) (string, error) {
	q, err := keyValues(f.filters)
	if err != nil {
		return "", err
	}
	if f.page > 0 {
		q.Set("page", strconv.Itoa(f.page))
	}
	if f.perPage > 0 {
		q.Set("per_page", strconv.Itoa(f.perPage))
	}
	if len(q) == 0 {
		return base, nil
	}
	return base + "?" + q.Encode(), nil
}

func keyValues(pairs []string) (url.Values, error) {
	q := url.Values{}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		q.Add(k, v)
	}
	return q, nil
}

// fieldValues parses key=value pairs for partial updates. Values that are
// valid JSON keep their type; anything else is a string.
func fieldValues(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", kv)
		}
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			fields[k] = decoded
		} else {
			fields[k] = v
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("nothing to update, pass --set key=value")
	}
	return fields, nil
}

func readJSONFile(path string, out any) error {
	if path == "" {
		return fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func parseID(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return v, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// listCmd opens the list page at base.
func listCmd(opts *rootOptions, base string) *cobra.Command {
	var f listFlags
	c := &cobra.Command{
		Use:   "list",
		Short: "List " + strings.TrimPrefix(base, "/"),
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			p, err := f.path(base)
			if err != nil {
				return err
			}
			return a.open(cmd, p)
		}),
	}
	f.register(c)
	return c
}

// getCmd opens the detail page below base.
func getCmd(opts *rootOptions, base string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one of " + strings.TrimPrefix(base, "/"),
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			resourceID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.open(cmd, base+"/"+id(resourceID))
		}),
	}
}

// updateCmd applies --set fields through update.
func updateCmd(opts *rootOptions, update func(cmd *cobra.Command, a *app, id int64, fields map[string]any) (any, error)) *cobra.Command {
	var sets []string
	c := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields",
		Args:  cobra.ExactArgs(1),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			resourceID, err := parseID(args[0])
			if err != nil {
				return err
			}
			fields, err := fieldValues(sets)
			if err != nil {
				return err
			}
			out, err := update(cmd, a, resourceID, fields)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	c.Flags().StringArrayVar(&sets, "set", nil, "Field as key=value, repeatable")
	return c
}

func newAdvertisersCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{Use: "advertisers", Short: "Manage advertisers"}

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an advertiser from a JSON file",
		Args:  cobra.NoArgs,
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var in api.Advertiser
			if err := readJSONFile(createFile, &in); err != nil {
				return err
			}
			out, err := a.client.Advertisers.Create(cmd.Context(), &in)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	create.Flags().StringVar(&createFile, "file", "", "JSON file with the advertiser")

	var reason string
	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change an advertiser's status",
		Args:  cobra.ExactArgs(2),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			advID, err := parseID(args[0])
			if err != nil {
				return err
			}
			out, err := a.client.Advertisers.ChangeStatus(cmd.Context(), advID, api.StatusChange{Status: args[1], Reason: reason})
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	status.Flags().StringVar(&reason, "reason", "", "Reason, required when rejecting")

	var fileType string
	upload := &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Upload a qualification document",
		Args:  cobra.ExactArgs(2),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			advID, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			out, err := a.client.Advertisers.UploadFile(cmd.Context(), advID, filepath.Base(args[1]), f, fileType)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	upload.Flags().StringVar(&fileType, "type", "business_license", "Document type")

	c.AddCommand(
		listCmd(opts, "/advertisers"),
		getCmd(opts, "/advertisers"),
		create,
		updateCmd(opts, func(cmd *cobra.Command, a *app, id int64, fields map[string]any) (any, error) {
			return a.client.Advertisers.Update(cmd.Context(), id, fields)
		}),
		status,
		upload,
		balanceCmd(opts, "deposit", "Add funds to an advertiser"),
		balanceCmd(opts, "withdraw", "Withdraw funds from an advertiser"),
	)
	return c
}

func balanceCmd(opts *rootOptions, action, short string) *cobra.Command {
	var txID string
	c := &cobra.Command{
		Use:   action + " <id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			advID, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			tx := api.Transaction{Amount: amount, TransactionID: txID}
			var out *api.BalanceResult
			if action == "deposit" {
				out, err = a.client.Advertisers.Deposit(cmd.Context(), advID, tx)
			} else {
				out, err = a.client.Advertisers.Withdraw(cmd.Context(), advID, tx)
			}
			if err != nil {
				return reported(err)
			}
			fmt.Fprintf(a.out, "%s, balance %s\n", out.Message, money(out.Balance))
			return nil
		}),
	}
	c.Flags().StringVar(&txID, "transaction-id", "", "External transaction reference")
	return c
}

func newCampaignsCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{Use: "campaigns", Short: "Manage campaigns"}

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a campaign from a JSON file",
		Args:  cobra.NoArgs,
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var in api.Campaign
			if err := readJSONFile(createFile, &in); err != nil {
				return err
			}
			out, err := a.client.Campaigns.Create(cmd.Context(), &in)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	create.Flags().StringVar(&createFile, "file", "", "JSON file with the campaign")

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a campaign's status",
		Args:  cobra.ExactArgs(2),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			campaignID, err := parseID(args[0])
			if err != nil {
				return err
			}
			out, err := a.client.Campaigns.ChangeStatus(cmd.Context(), campaignID, args[1])
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}

	var query []string
	stats := &cobra.Command{
		Use:   "stats <id>",
		Short: "Show a campaign's delivery statistics",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			campaignID, err := parseID(args[0])
			if err != nil {
				return err
			}
			q, err := keyValues(query)
			if err != nil {
				return err
			}
			out, err := a.client.Campaigns.Statistics(cmd.Context(), campaignID, q)
			if err != nil {
				return reported(err)
			}
			printMetrics(a.out, out)
			return nil
		}),
	}
	stats.Flags().StringArrayVar(&query, "query", nil, "Query as key=value (start_date, end_date, granularity)")

	c.AddCommand(
		listCmd(opts, "/campaigns"),
		getCmd(opts, "/campaigns"),
		create,
		updateCmd(opts, func(cmd *cobra.Command, a *app, id int64, fields map[string]any) (any, error) {
			return a.client.Campaigns.Update(cmd.Context(), id, fields)
		}),
		status,
		stats,
	)
	return c
}

func newCreativesCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{Use: "creatives", Short: "Manage creatives"}

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a creative from a JSON file",
		Args:  cobra.NoArgs,
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var in api.Creative
			if err := readJSONFile(createFile, &in); err != nil {
				return err
			}
			out, err := a.client.Creatives.Create(cmd.Context(), &in)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	create.Flags().StringVar(&createFile, "file", "", "JSON file with the creative")

	upload := &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Upload a creative's content",
		Args:  cobra.ExactArgs(2),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			creativeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			out, err := a.client.Creatives.UploadContent(cmd.Context(), creativeID, filepath.Base(args[1]), f)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}

	var reason string
	review := &cobra.Command{
		Use:   "review <id> <approved|rejected>",
		Short: "Review a creative",
		Args:  cobra.ExactArgs(2),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			creativeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			out, err := a.client.Creatives.Review(cmd.Context(), creativeID, api.StatusChange{Status: args[1], Reason: reason})
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	review.Flags().StringVar(&reason, "reason", "", "Reason, required when rejecting")

	c.AddCommand(
		listCmd(opts, "/creatives"),
		getCmd(opts, "/creatives"),
		create,
		updateCmd(opts, func(cmd *cobra.Command, a *app, id int64, fields map[string]any) (any, error) {
			return a.client.Creatives.Update(cmd.Context(), id, fields)
		}),
		upload,
		review,
	)
	return c
}

func newReportsCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{Use: "reports", Short: "Run reports and report jobs"}

	reportPage := func(name, path string) *cobra.Command {
		var query []string
		rc := &cobra.Command{
			Use:   name,
			Short: "Show the " + name + " report",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
				q, err := keyValues(query)
				if err != nil {
					return err
				}
				target := path
				if len(q) > 0 {
					target += "?" + q.Encode()
				}
				return a.open(cmd, target)
			}),
		}
		rc.Flags().StringArrayVar(&query, "query", nil, "Query as key=value, repeatable")
		return rc
	}

	jobs := &cobra.Command{Use: "jobs", Short: "Manage report jobs"}

	getJob := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a report job",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := a.client.Reports.GetJob(cmd.Context(), jobID)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, job)
		}),
	}

	var req api.ReportJobRequest
	createJob := &cobra.Command{
		Use:   "create",
		Short: "Start a report job",
		Args:  cobra.NoArgs,
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			job, err := a.client.Reports.CreateJob(cmd.Context(), req)
			if err != nil {
				return reported(err)
			}
			printJobs(a, []api.ReportJob{*job})
			return nil
		}),
	}
	createJob.Flags().StringVar(&req.Name, "name", "", "Job name")
	createJob.Flags().StringVar(&req.ReportType, "type", "performance", "Report type")
	createJob.Flags().StringVar(&req.StartDate, "start", "", "Start date (YYYY-MM-DD)")
	createJob.Flags().StringVar(&req.EndDate, "end", "", "End date (YYYY-MM-DD)")

	jobs.AddCommand(listCmd(opts, "/reports"), getJob, createJob)
	c.AddCommand(
		reportPage("performance", "/reports/performance"),
		reportPage("custom", "/reports/custom"),
		jobs,
	)
	return c
}

func newUsersCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{Use: "users", Short: "Manage console users"}

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user from a JSON file",
		Args:  cobra.NoArgs,
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			var in api.UserInput
			if err := readJSONFile(createFile, &in); err != nil {
				return err
			}
			out, err := a.client.Users.Create(cmd.Context(), in)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	create.Flags().StringVar(&createFile, "file", "", "JSON file with the user")

	var updateFile string
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var in api.UserInput
			if err := readJSONFile(updateFile, &in); err != nil {
				return err
			}
			out, err := a.client.Users.Update(cmd.Context(), userID, in)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, out)
		}),
	}
	update.Flags().StringVar(&updateFile, "file", "", "JSON file with the changed fields")

	var oldFile, newFile string
	password := &cobra.Command{
		Use:   "password <id>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: withWriteApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			if oldFile == "" || newFile == "" {
				return fmt.Errorf("--old-password-file and --new-password-file are required")
			}
			in := newInput(cmd)
			oldPassword, err := readPassword(in, a.errOut, oldFile)
			if err != nil {
				return err
			}
			defer oldPassword.Destroy()
			newPassword, err := readPassword(in, a.errOut, newFile)
			if err != nil {
				return err
			}
			defer newPassword.Destroy()
			change := api.PasswordChange{OldPassword: oldPassword.String(), NewPassword: newPassword.String()}
			if err := a.client.Users.ChangePassword(cmd.Context(), userID, change); err != nil {
				return reported(err)
			}
			fmt.Fprintln(a.out, "Password changed")
			return nil
		}),
	}
	password.Flags().StringVar(&oldFile, "old-password-file", "", "File containing the current password")
	password.Flags().StringVar(&newFile, "new-password-file", "", "File containing the new password")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			userID, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.client.Users.Get(cmd.Context(), userID)
			if err != nil {
				return reported(err)
			}
			return printJSON(a.out, u)
		}),
	}

	roles := &cobra.Command{
		Use:   "roles",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			return a.open(cmd, "/settings/roles")
		}),
	}

	c.AddCommand(
		listCmd(opts, "/settings/users"),
		get,
		create,
		update,
		password,
		roles,
	)
	return c
}
