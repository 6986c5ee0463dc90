package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/milare/google-instance-id/instanceid"
)

var tokensFile string

// relationshipReport is what add/remove print
type relationshipReport struct {
	Action string                         `json:"action" yaml:"action"`
	Topic  string                         `json:"topic" yaml:"topic"`
	Tokens int                            `json:"tokens" yaml:"tokens"`
	Errors []instanceid.RelationshipError `json:"errors" yaml:"errors"`
	Failed []instanceid.ChunkFailure      `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <topic> [token...]",
	Short: "Subscribe registration tokens to a topic",
	Long: `Subscribe registration tokens to a topic. Tokens are taken from the
arguments and from --tokens-file, and are sent in batches of at most 1000.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelationship(cmd, args, instanceid.ActionAdd)
	},
}

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove <topic> [token...]",
	Short: "Unsubscribe registration tokens from a topic",
	Long: `Unsubscribe registration tokens from a topic. Tokens are taken from the
arguments and from --tokens-file, and are sent in batches of at most 1000.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelationship(cmd, args, instanceid.ActionRemove)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)

	for _, c := range []*cobra.Command{addCmd, removeCmd} {
		c.Flags().StringVarP(&tokensFile, "tokens-file", "t", "", "file with one registration token per line (- for stdin)")
	}
}

func runRelationship(cmd *cobra.Command, args []string, action instanceid.Action) error {
	topic := normalizeTopic(args[0])

	tokens := args[1:]
	if tokensFile != "" {
		fromFile, err := readTokensFile(cmd.InOrStdin(), tokensFile)
		if err != nil {
			return err
		}
		tokens = append(tokens, fromFile...)
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no registration tokens given")
	}

	logger.Info().
		Str("action", string(action)).
		Str("topic", topic).
		Int("tokens", len(tokens)).
		Msg("Updating topic subscriptions")

	ctx := context.Background()
	var (
		result *instanceid.BatchResult
		err    error
	)
	if action == instanceid.ActionRemove {
		result, err = client.BatchRemoveTopic(ctx, tokens, topic)
	} else {
		result, err = client.BatchAddTopic(ctx, tokens, topic)
	}
	if err != nil {
		return fmt.Errorf("failed to %s topic: %w", action, err)
	}

	report := relationshipReport{
		Action: string(action),
		Topic:  topic,
		Tokens: len(tokens),
		Errors: result.Errors,
		Failed: result.Failed,
	}
	if err := printResult(cmd.OutOrStdout(), cfg.Output.Format, report); err != nil {
		return err
	}

	if !result.OK() {
		failed := result.Failed[0]
		return fmt.Errorf("%d of %d batches rejected: %w", len(result.Failed), len(result.Chunks),
			&instanceid.APIError{StatusCode: failed.StatusCode})
	}

	if len(result.Errors) > 0 {
		logger.Warn().Int("errors", len(result.Errors)).Msg("Some registration tokens were not updated")
	}
	return nil
}

// normalizeTopic accepts both "news" and "/topics/news"
func normalizeTopic(topic string) string {
	if strings.HasPrefix(topic, "/topics/") {
		return topic
	}
	return "/topics/" + topic
}

// readTokensFile reads one token per line, skipping blanks and # comments
func readTokensFile(stdin io.Reader, path string) ([]string, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open tokens file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens = append(tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tokens file: %w", err)
	}
	return tokens, nil
}
