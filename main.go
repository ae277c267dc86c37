// Command atsscore parses uploaded resumes with Gemini and gives them a
// heuristic ATS score.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "atsscore",
	Short:        "Resume ATS scorer",
	Long:         "atsscore extracts text from a resume, has Gemini structure it as JSON and computes an ATS score from the result.",
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *Config) (*App, error) {
	parser, err := NewGeminiResumeParser(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return &App{Parser: parser}, nil
}
