package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hackutd/harp-sub000/internal/client"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/spf13/cobra"
)

// reviewRow is one printed row of `harp reviews`.
type reviewRow struct {
	ID            string     `json:"id" yaml:"id"`
	ApplicationID string     `json:"application_id" yaml:"application_id"`
	Applicant     string     `json:"applicant" yaml:"applicant"`
	Email         string     `json:"email" yaml:"email"`
	Vote          string     `json:"vote,omitempty" yaml:"vote,omitempty"`
	Notes         string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	AssignedAt    time.Time  `json:"assigned_at" yaml:"assigned_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty"`
}

func toReviewRow(r storage.Review) reviewRow {
	row := reviewRow{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Applicant:     r.ApplicantName(),
		Email:         r.Email,
		Notes:         deref(r.Notes),
		AssignedAt:    r.AssignedAt,
		ReviewedAt:    r.ReviewedAt,
	}
	if r.Vote != nil {
		row.Vote = string(*r.Vote)
	}
	return row
}

func reviewsCmd() *cobra.Command {
	var (
		completed bool
		output    string
	)

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "List your assigned reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			c, _, err := newClient()
			if err != nil {
				return err
			}
			var reviews []storage.Review
			if completed {
				reviews, err = c.ListCompletedReviews(cmd.Context())
			} else {
				reviews, err = c.ListPendingReviews(cmd.Context())
			}
			if err != nil {
				return describeClientError(err)
			}

			rows := make([]reviewRow, 0, len(reviews))
			for _, r := range reviews {
				rows = append(rows, toReviewRow(r))
			}
			if output != outputTable {
				return writeStructured(cmd.OutOrStdout(), output, map[string][]reviewRow{"reviews": rows})
			}
			return printReviews(cmd.OutOrStdout(), rows, completed)
		},
	}

	cmd.Flags().BoolVar(&completed, "completed", false, "list decided reviews instead of pending ones")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format: table, json or yaml")

	return cmd
}

func printReviews(w io.Writer, rows []reviewRow, completed bool) error {
	if len(rows) == 0 {
		if completed {
			fmt.Fprintln(w, "No completed reviews.")
		} else {
			fmt.Fprintln(w, "No pending reviews. Run `harp next` to get one assigned.")
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if completed {
		fmt.Fprintln(tw, "ID\tAPPLICANT\tEMAIL\tVOTE\tREVIEWED")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Applicant, r.Email, r.Vote, formatTime(r.ReviewedAt))
		}
	} else {
		fmt.Fprintln(tw, "ID\tAPPLICANT\tEMAIL\tASSIGNED")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Applicant, r.Email, formatTime(&r.AssignedAt))
		}
	}
	return tw.Flush()
}

func voteCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "vote <review-id> <accept|waitlist|reject>",
		Short: "Decide one of your pending reviews",
		Long:  "Submit a vote for a pending review. A decided review cannot be changed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			vote, err := storage.ParseVote(args[1])
			if err != nil {
				return err
			}
			payload := storage.VotePayload{Vote: vote}
			if notes != "" {
				payload.Notes = &notes
			}
			if err := payload.Validate(); err != nil {
				return err
			}

			c, _, err := newClient()
			if err != nil {
				return err
			}
			review, err := c.SubmitVote(cmd.Context(), id, payload)
			switch {
			case client.IsConflict(err):
				return fmt.Errorf("review %s was already decided", id)
			case client.IsNotFound(err):
				return fmt.Errorf("review %s not found among your assignments", id)
			case err != nil:
				return describeClientError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Voted %s on %s (review %s)\n", vote, review.ApplicantName(), review.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", fmt.Sprintf("reviewer notes, up to %d characters", storage.MaxNotesLength))

	return cmd
}

func nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Get the next application that needs review assigned to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := newClient()
			if err != nil {
				return err
			}
			review, err := c.NextReview(cmd.Context())
			if client.IsNotFound(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No applications need review.")
				return nil
			}
			if err != nil {
				return describeClientError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s <%s> (review %s)\n", review.ApplicantName(), review.Email, review.ID)
			return nil
		},
	}
}
