package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/salience/internal/analysis"
	"github.com/lazypower/salience/internal/project"
	"github.com/lazypower/salience/internal/query"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Analyze conversation text offline",
	Long:  "Run the analyzer and query synthesizer on the given text (or stdin) and print the result as JSON. Useful for tuning without a running daemon.",
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) > 0 {
		text = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	a := analysis.Analyze(text, analysis.DefaultOptions())
	change := analysis.DetectTopicChanges(nil, a)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	proj := project.Detect(cwd)
	queries := query.GenerateMemoryQueries(a, change, proj)

	out := map[string]any{
		"analysis": a,
		"change":   change,
		"project":  proj,
		"queries":  queries,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
