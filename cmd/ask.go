package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"csvchat/internal/history"
	"csvchat/internal/pipeline"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <file.csv> <question>",
	Short: "Ask one question about a CSV file",
	Long: `Load a CSV file, turn the question into SQL with the configured
language model, run it and print the SQL and its result.

Requires an API key via --api-key, CSVCHAT_LLM__API_KEY or the provider's
usual environment variable (ANTHROPIC_API_KEY, OPENAI_API_KEY).

Examples:
  csvchat ask analytics.csv "What is the total number of views?"
  csvchat ask analytics.csv "Show a table of views by country" --json`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		sess, err := openSession(ctx, args[0])
		if err != nil {
			HandleError(err, "Failed to load CSV")
		}
		defer sess.Close()

		p, err := pipeline.New(cfg, logger)
		if err != nil {
			HandleError(err, "Failed to create pipeline")
		}

		reply, err := p.Submit(ctx, sess, args[1])
		if err != nil {
			HandleError(err, "Failed to submit question")
		}

		if askJSON {
			output, err := json.MarshalIndent(reply, "", "  ")
			if err != nil {
				HandleError(err, "Failed to encode JSON")
			}
			fmt.Println(string(output))
			return
		}

		if reply.Entry == nil {
			err := reply.Err
			if err == nil {
				err = errors.New(reply.Notice)
			}
			HandleError(err, "No answer")
		}
		fmt.Print(formatEntry(*reply.Entry))
	},
}

// formatEntry renders the generated SQL with glamour and the result as text.
func formatEntry(e history.Entry) string {
	sqlBlock := "```sql\n" + e.SQL + "\n```"
	out := e.SQL + "\n\n"
	if RenderMarkdown != nil {
		if rendered, err := RenderMarkdown(sqlBlock, 100); err == nil {
			out = rendered
		}
	}
	if e.Result != nil && (e.Kind == history.KindTable || e.Kind == history.KindText) {
		return out + history.TextBlock(e.Result) + "\n"
	}
	return out + e.Response + "\n"
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full reply as JSON")
	rootCmd.AddCommand(askCmd)
}
