// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/research-agent/internal/notes"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Browse saved research notes",
	Long: `Notes lists or searches the research notes saved by past runs. Search
requires an index directory; runs started with --index-dir keep the
index current.`,
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved notes, most recent first",
	RunE:  runNotesList,
}

func runNotesList(cmd *cobra.Command, args []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	records, err := idx.List(context.Background())
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatNotesOutput(records, jsonOutput)
}

var notesSearchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Full-text search over saved note bodies",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNotesSearch,
}

func runNotesSearch(cmd *cobra.Command, args []string) error {
	idx, err := openIndex(cmd)
	if err != nil {
		return err
	}
	defer idx.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := idx.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatNotesOutput(records, jsonOutput)
}

func openIndex(cmd *cobra.Command) (*notes.Index, error) {
	indexDir, _ := cmd.Flags().GetString("index-dir")
	if indexDir == "" {
		return nil, fmt.Errorf("index directory required: set --index-dir")
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return notes.OpenIndex(indexDir, maxResults)
}

func formatNotesOutput(records []notes.NoteRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No notes found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-30s  %-20s  %s\n", "Topic", "Saved", "Path")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, r := range records {
		topic := r.Topic
		if len(topic) > 30 {
			topic = topic[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-30s  %-20s  %s\n",
			topic, r.SavedAt.Format("2006-01-02 15:04"), r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(os.Stdout, "    %s\n", r.Snippet)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%d notes\n", len(records))
	return nil
}

func init() {
	notesCmd.PersistentFlags().String("index-dir", "index", "directory containing the notes index database")
	notesCmd.PersistentFlags().Int("max-results", 20, "default maximum number of results")
	notesCmd.PersistentFlags().Bool("json", false, "output results as JSON")

	notesSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")

	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesSearchCmd)

	rootCmd.AddCommand(notesCmd)
}
