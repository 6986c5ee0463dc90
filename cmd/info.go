package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milare/google-instance-id/query"
)

var queryExpr string

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <token>",
	Short: "Show the details of a registration token",
	Long: `Show what the Instance ID service knows about a registration token:
application, platform, attestation status and topic subscriptions.

Use --query to evaluate an expression against the details instead, e.g.

  iid info TOKEN --query 'subscribed("news")'
  iid info TOKEN --query 'platform == "ANDROID" && topicCount() > 2'`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&queryExpr, "query", "q", "", "expression to evaluate against the token details")
}

func runInfo(cmd *cobra.Command, args []string) error {
	// Compile first so a bad expression fails before any request
	var q *query.Query
	if queryExpr != "" {
		var err error
		q, err = query.Compile(queryExpr)
		if err != nil {
			return err
		}
	}

	info, err := client.GetInfo(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get info: %w", err)
	}
	if info == nil {
		return fmt.Errorf("no info available for registration token %q", args[0])
	}

	if q == nil {
		return printResult(cmd.OutOrStdout(), cfg.Output.Format, info.Raw())
	}

	result, err := q.Run(info)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), cfg.Output.Format, result)
}
