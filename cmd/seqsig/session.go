package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or remove saved signatures",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := sessionCache().Meta(args[0])
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%s: %s\n", k, meta[k])
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <session-id>",
		Short: "Remove a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionCache().Clear(args[0])
		},
	})

	return cmd
}
