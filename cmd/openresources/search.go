// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/openresources/internal/search"
	"github.com/pdiddy/openresources/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search every enabled provider from the terminal",
	Long: `Search runs one federated query in-process, the same way the HTTP API
does, and prints the requested page as a table (default) or JSON.

Use --out to save the query and its results to a YAML file, and --from to
print a previously saved file without contacting any provider.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	fromFile, _ := cmd.Flags().GetString("from")
	outFile, _ := cmd.Flags().GetString("out")
	jsonOut, _ := cmd.Flags().GetBool("json")

	if fromFile != "" {
		qf, err := search.ReadQueryFile(fromFile)
		if err != nil {
			return err
		}
		resp, err := qf.Response()
		if err != nil {
			return fmt.Errorf("%s: %w", fromFile, err)
		}
		return printResponse(resp, jsonOut)
	}

	raw := search.RawQuery{Text: strings.Join(args, " ")}
	raw.Type, _ = cmd.Flags().GetString("type")
	raw.Page, _ = cmd.Flags().GetInt("page")
	raw.PageSize, _ = cmd.Flags().GetInt("limit")

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	resp, err := newService(reg, store, nil).Search(context.Background(), raw)
	if err != nil {
		return err
	}

	if outFile != "" {
		q, err := types.NewQuery(raw.Text, raw.Type, resp.Page, resp.PageSize)
		if err != nil {
			return err
		}
		if err := search.WriteQueryFile(outFile, q, resp); err != nil {
			return err
		}
		log.Info("saved query file", zap.String("path", outFile))
	}
	return printResponse(resp, jsonOut)
}

func printResponse(resp *types.SearchResponse, jsonOut bool) error {
	if jsonOut {
		return search.FormatJSON(resp, os.Stdout)
	}
	search.FormatTable(resp, os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().String("type", "all", "resource type: "+types.FilterChoices())
	searchCmd.Flags().Int("page", 1, "1-based page number")
	searchCmd.Flags().Int("limit", 0, "results per page (default from config)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("out", "", "save the query and results to a YAML file")
	searchCmd.Flags().String("from", "", "print a saved YAML query file instead of searching")

	rootCmd.AddCommand(searchCmd)
}
