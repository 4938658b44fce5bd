package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docviewer/internal/viewmodel"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <file>",
	Short: "Fetch a document and print its page summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		client := newBackend(cfg, log)
		defer client.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.BackendTimeout*time.Duration(cfg.BackendRetries+1))
		defer cancel()

		records, err := client.FetchChunks(ctx, args[0])
		if err != nil {
			return err
		}
		return printPages(cmd.OutOrStdout(), viewmodel.Build(records))
	},
}

// printPages writes one row per page in ascending order.
func printPages(out io.Writer, pages map[int]*viewmodel.Page) error {
	if len(pages) == 0 {
		_, err := fmt.Fprintln(out, "no pages")
		return err
	}

	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tCHUNKS\tFIRST CHUNK")
	for _, n := range numbers {
		p := pages[n]
		first := "-"
		if len(p.Chunks) > 0 {
			first = p.Chunks[0].Title
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\n", n, len(p.Chunks), first)
	}
	return tw.Flush()
}
