// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the registered providers and their settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%-22s  %-8s  %-9s  %s\n", "Name", "Enabled", "Timeout", "Types")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 72))
		for _, e := range reg.Entries() {
			timeout := "deadline"
			if e.Timeout > 0 {
				timeout = e.Timeout.String()
			}
			names := make([]string, len(e.Types))
			for i, t := range e.Types {
				names[i] = string(t)
			}
			fmt.Fprintf(os.Stdout, "%-22s  %-8t  %-9s  %s\n", e.Name(), e.Enabled, timeout, strings.Join(names, ","))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
