package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/internal/model"
)

var enqueueParams model.JobParams

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Add a scrape job to the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		job, err := st.EnqueueJob(cmd.Context(), enqueueParams)
		if err != nil {
			return err
		}

		zap.L().Info("job enqueued",
			zap.String("job_id", job.ID),
			zap.String("city", job.City),
			zap.String("business_type", job.BusinessType),
			zap.Int("record_limit", job.RecordLimit),
		)
		cmd.Println(job.ID)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueParams.Country, "country", "", "country code (e.g. GB)")
	enqueueCmd.Flags().StringVar(&enqueueParams.City, "city", "", "city filter")
	enqueueCmd.Flags().StringVar(&enqueueParams.State, "state", "", "state filter")
	enqueueCmd.Flags().StringVar(&enqueueParams.PostalCode, "postal-code", "", "postal code filter")
	enqueueCmd.Flags().StringVar(&enqueueParams.BusinessType, "type", "", "business type")
	enqueueCmd.Flags().IntVar(&enqueueParams.RecordLimit, "limit", 100, "max records to fetch")
	enqueueCmd.Flags().IntVar(&enqueueParams.SkipTimes, "skip-times", 1, "page number (1-based)")
	_ = enqueueCmd.MarkFlagRequired("country")
	_ = enqueueCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(enqueueCmd)
}
