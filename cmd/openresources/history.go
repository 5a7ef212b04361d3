// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var errHistoryDisabled = errors.New("search history is disabled (history.enabled=false)")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Long: `History lists the most recent searches recorded by the server and the
search command, newest first. Use "history prune" to drop old entries.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	store, err := openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No searches recorded.")
		return nil
	}
	fmt.Printf("%-36s  %-20s  %-8s  %-40s  %5s  %4s  %7s\n", "ID", "When", "Type", "Query", "Total", "Page", "Elapsed")
	fmt.Println(strings.Repeat("-", 132))
	for _, e := range entries {
		fmt.Printf("%-36s  %-20s  %-8s  %-40s  %5d  %4d  %5dms\n",
			e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Type, clip(e.Query, 40), e.Total, e.Page, e.ElapsedMs)
	}
	return nil
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete searches older than a given age",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		store, err := openHistory()
		if err != nil {
			return err
		}
		if store == nil {
			return errHistoryDisabled
		}
		defer store.Close()

		n, err := store.Prune(context.Background(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d search(es).\n", n)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded search with its per-provider outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		if store == nil {
			return errHistoryDisabled
		}
		defer store.Close()

		e, err := store.Get(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	},
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of searches to show")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	historyPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete searches recorded before now minus this age")

	historyCmd.AddCommand(historyPruneCmd, historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
