package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/spf13/cobra"
)

// applicationRow is one printed row of `harp applications`.
type applicationRow struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Email       string     `json:"email" yaml:"email"`
	Status      string     `json:"status" yaml:"status"`
	University  string     `json:"university,omitempty" yaml:"university,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty" yaml:"submitted_at,omitempty"`
}

type applicationsOutput struct {
	Applications []applicationRow `json:"applications" yaml:"applications"`
	NextCursor   *string          `json:"next_cursor" yaml:"next_cursor"`
	PrevCursor   *string          `json:"prev_cursor" yaml:"prev_cursor"`
	HasMore      bool             `json:"has_more" yaml:"has_more"`
}

type statsOutput struct {
	Total          int     `json:"total_applications" yaml:"total_applications"`
	Draft          int     `json:"draft" yaml:"draft"`
	Submitted      int     `json:"submitted" yaml:"submitted"`
	Accepted       int     `json:"accepted" yaml:"accepted"`
	Rejected       int     `json:"rejected" yaml:"rejected"`
	Waitlisted     int     `json:"waitlisted" yaml:"waitlisted"`
	AcceptanceRate float64 `json:"acceptance_rate" yaml:"acceptance_rate"`
}

func applicationsCmd() *cobra.Command {
	var (
		status    string
		cursor    string
		direction string
		limit     int
		output    string
		openTUI   bool
	)

	cmd := &cobra.Command{
		Use:   "applications",
		Short: "List applications one page at a time",
		Long: `Print one page of applications, newest first. Pass the printed cursor back
with --cursor (and --direction backward for the previous page) to move
through the list. --tui opens the interactive list instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if openTUI {
				return runTUI(cmd.Context(), "applications")
			}
			if err := validateOutput(output); err != nil {
				return err
			}
			if status != "" && !storage.ApplicationStatus(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			dir, err := pagination.ParseDirection(direction)
			if err != nil {
				return err
			}

			c, _, err := newClient()
			if err != nil {
				return err
			}
			page, err := c.ListApplications(cmd.Context(), pagination.Request{
				Status:    status,
				Cursor:    cursor,
				Direction: dir,
				Limit:     limit,
			})
			if err != nil {
				return describeClientError(err)
			}

			out := applicationsOutput{
				Applications: make([]applicationRow, 0, len(page.Items)),
				NextCursor:   page.NextCursor,
				PrevCursor:   page.PrevCursor,
				HasMore:      page.HasMore,
			}
			for _, it := range page.Items {
				out.Applications = append(out.Applications, applicationRow{
					ID:          it.ID,
					Name:        it.Name(),
					Email:       it.Email,
					Status:      string(it.Status),
					University:  deref(it.University),
					SubmittedAt: it.SubmittedAt,
				})
			}
			if output != outputTable {
				return writeStructured(cmd.OutOrStdout(), output, out)
			}
			return printApplications(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (draft, submitted, accepted, rejected, waitlisted)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor from a previous page")
	cmd.Flags().StringVar(&direction, "direction", "", "forward or backward from --cursor")
	cmd.Flags().IntVar(&limit, "limit", 0, fmt.Sprintf("page size, 1-%d (default %d)", pagination.MaxLimit, pagination.DefaultLimit))
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")
	cmd.Flags().BoolVar(&openTUI, "tui", false, "open the interactive applications list")

	cmd.AddCommand(applicationStatsCmd())

	return cmd
}

func applicationStatsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show application counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			c, _, err := newClient()
			if err != nil {
				return err
			}
			stats, err := c.ApplicationStats(cmd.Context())
			if err != nil {
				return describeClientError(err)
			}
			out := statsOutput{
				Total:          stats.TotalApplications,
				Draft:          stats.Draft,
				Submitted:      stats.Submitted,
				Accepted:       stats.Accepted,
				Rejected:       stats.Rejected,
				Waitlisted:     stats.Waitlisted,
				AcceptanceRate: stats.AcceptanceRate,
			}
			if output != outputTable {
				return writeStructured(cmd.OutOrStdout(), output, out)
			}
			return printStats(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return cmd
}

func printStats(w io.Writer, out statsOutput) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tCOUNT")
	for _, row := range []struct {
		name string
		n    int
	}{
		{"submitted", out.Submitted},
		{"accepted", out.Accepted},
		{"waitlisted", out.Waitlisted},
		{"rejected", out.Rejected},
		{"draft", out.Draft},
		{"total", out.Total},
	} {
		fmt.Fprintf(tw, "%s\t%d\n", row.name, row.n)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nAcceptance rate: %.1f%%\n", out.AcceptanceRate)
	return nil
}

func printApplications(w io.Writer, out applicationsOutput) error {
	if len(out.Applications) == 0 {
		fmt.Fprintln(w, "No applications found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSTATUS\tUNIVERSITY\tSUBMITTED")
	for _, a := range out.Applications {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Email, a.Status, a.University, formatTime(a.SubmittedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if out.NextCursor != nil {
		fmt.Fprintf(w, "\nNext page: --cursor %s\n", *out.NextCursor)
	}
	if out.PrevCursor != nil {
		fmt.Fprintf(w, "Previous page: --cursor %s --direction backward\n", *out.PrevCursor)
	}
	return nil
}
