package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pdfchat/internal/pkg/pdfextract"
	"pdfchat/internal/pkg/textsplit"
)

func newExtractCmd() *cobra.Command {
	var perPage bool
	cmd := &cobra.Command{
		Use:   "extract <file.pdf>",
		Short: "Print the text extracted from a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			pages, err := pdfextract.ExtractPages(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !perPage {
				_, err = fmt.Fprintln(out, pdfextract.JoinPages(pages))
				return err
			}
			for _, p := range pages {
				fmt.Fprintf(out, "--- page %d ---\n%s\n", p.Number, p.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&perPage, "pages", false, "print a header before each page")
	return cmd
}

func newChunkCmd() *cobra.Command {
	var (
		size    int
		overlap int
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "chunk <file.pdf|file.txt>",
		Short: "Split a document the way uploads are split",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(args[0])
			if err != nil {
				return err
			}
			chunks := textsplit.New(size, overlap).Split(text)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(chunks)
			}
			for i, c := range chunks {
				fmt.Fprintf(out, "[%d] (%d runes)\n%s\n\n", i, len([]rune(c)), c)
			}
			fmt.Fprintf(out, "%d chunks\n", len(chunks))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 1000, "chunk size in runes")
	cmd.Flags().IntVar(&overlap, "overlap", 100, "overlap between chunks in runes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit chunks as a JSON array")
	return cmd
}

// readDocument extracts PDF text, or reads any other file as plain text.
func readDocument(path string) (string, error) {
	if isPDF(path) {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		return pdfextract.ExtractText(f)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
