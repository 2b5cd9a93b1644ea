package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the conversion job ledger",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past conversion jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openLedger(newLogger())
		if err != nil {
			return err
		}
		defer store.Close()

		jobs, err := store.ListJobs(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILE\tSTATUS\tPAGES\tFAILED\tCREATED")
		for _, job := range jobs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\t%d\t%s\n",
				job.ID, job.Filename, job.Status,
				job.CompletedPages, job.TotalPages, job.FailedPages,
				job.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a job from the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid job id %q", args[0])
		}

		store, err := openLedger(newLogger())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteJob(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("deleted job %d\n", id)
		return nil
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}
