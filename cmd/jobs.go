package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BlendBerisha/businessscrapper/internal/model"
	"github.com/BlendBerisha/businessscrapper/internal/store"
)

var (
	jobsStatus string
	jobsLimit  int
	jobsOutput string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the scrape queue",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.JobFilter{Limit: jobsLimit}
		if jobsStatus != "" {
			status, err := model.ParseJobStatus(jobsStatus)
			if err != nil {
				return err
			}
			filter.Status = status
		}

		jobs, err := st.ListJobs(cmd.Context(), filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tCOUNTRY\tCITY\tTYPE\tLIMIT\tCREATED\tERROR")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				j.ID, j.Status, j.Country, j.City, j.BusinessType,
				j.RecordLimit, j.CreatedAt.Format("2006-01-02 15:04"), j.Error)
		}
		return w.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		job, err := st.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		switch jobsOutput {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close() //nolint:errcheck
			return enc.Encode(job)
		}
		return fmt.Errorf("unknown output format %q", jobsOutput)
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 100, "max jobs to list")
	jobsShowCmd.Flags().StringVar(&jobsOutput, "output", "yaml", "output format: yaml or json")
	jobsCmd.AddCommand(jobsListCmd, jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}
