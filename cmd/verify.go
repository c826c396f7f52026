package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BlendBerisha/businessscrapper/pkg/millionverifier"
)

var verifyAPIKey string

var verifyCmd = &cobra.Command{
	Use:   "verify <email>",
	Short: "Verify a single email address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := verifyAPIKey
		if apiKey == "" {
			st, err := initStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			settings, err := st.GetSettings(cmd.Context(), cfg.Queue.SettingsKey)
			if err != nil {
				return eris.Wrap(err, "load settings")
			}
			apiKey, err = settings.RequireMillionVerifier()
			if err != nil {
				return err
			}
		}

		client := millionverifier.NewClient(apiKey,
			millionverifier.WithBaseURL(cfg.MillionVerifier.BaseURL),
			millionverifier.WithTimeout(time.Duration(cfg.MillionVerifier.TimeoutMs)*time.Millisecond),
		)
		result, err := client.Verify(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		zap.L().Info("verification result",
			zap.String("email", result.Email),
			zap.String("result", result.Result),
			zap.String("quality", result.Quality),
			zap.Bool("valid", result.IsValid()),
		)
		if result.IsValid() {
			cmd.Println("valid")
		} else {
			cmd.Println("invalid")
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyAPIKey, "api-key", "", "verification API key (default from settings)")
	rootCmd.AddCommand(verifyCmd)
}
