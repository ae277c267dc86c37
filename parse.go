package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse and score a local resume file",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the outcome as JSON")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(os.Stderr, cfg.LogLevel)

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	resumeText, err := ExtractResumeText(detectMime(path, "", data), data)
	if err != nil {
		return err
	}

	app, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	outcome, err := analyzeResume(cmd.Context(), app.Parser, uuid.NewString(), resumeText)
	if err != nil {
		return err
	}

	if parseJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}
	return printOutcome(cmd.OutOrStdout(), outcome)
}

func printOutcome(w io.Writer, outcome *AnalysisOutcome) error {
	if !outcome.Success {
		_, err := fmt.Fprintf(w, "%s\nRaw Output:\n%s\nError: %s\n",
			outcome.Failure.Message, outcome.Failure.RawOutput, outcome.Failure.Error)
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, outcome.Parsed, "", "  "); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Resume successfully parsed!\nParsed Resume (JSON):\n%s\nATS Score:\nScore: %d/100\n",
		pretty.String(), outcome.Score.Total)
	return err
}
