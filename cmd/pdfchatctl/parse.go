package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pdfchat/internal/studyparse"
)

func newParseQuizCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "parse-quiz [file]",
		Short: "Parse a raw model reply into quiz questions (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if strict {
				return writeJSON(cmd, studyparse.ParseQuizStrict(text))
			}
			questions, err := studyparse.ParseQuiz(text)
			if err != nil {
				return err
			}
			return writeJSON(cmd, questions)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "only run the line-oriented parser")
	return cmd
}

func newParseFlashcardsCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "parse-flashcards [file]",
		Short: "Parse a raw model reply into flashcards (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if strict {
				return writeJSON(cmd, studyparse.ParseFlashcardsStrict(text))
			}
			cards, err := studyparse.ParseFlashcards(text)
			if err != nil {
				return err
			}
			return writeJSON(cmd, cards)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "only run the line-oriented parser")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	}
	raw, err := os.ReadFile(args[0])
	return string(raw), err
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
