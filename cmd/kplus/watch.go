package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the inbox directories watched by a running server",
	}
	cmd.PersistentFlags().String("server", defaultServerURL, "server URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path>",
		Short: "Add directory to watch and parse the acts already in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			body, _ := json.Marshal(map[string]any{"path": path, "sync": true})
			if err := doJSON(cmd.Context(), http.MethodPost, serverURL+"/api/v1/watch/directories", bytes.NewReader(body), http.StatusCreated, nil); err != nil {
				return fmt.Errorf("add failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <path>",
		Short: "Remove directory from watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			target := serverURL + "/api/v1/watch/directories?path=" + url.QueryEscape(path)
			if err := doJSON(cmd.Context(), http.MethodDelete, target, nil, http.StatusOK, nil); err != nil {
				return fmt.Errorf("remove failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watched directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			var out struct {
				Directories []string `json:"directories"`
			}
			if err := doJSON(cmd.Context(), http.MethodGet, serverURL+"/api/v1/watch/directories", nil, http.StatusOK, &out); err != nil {
				return fmt.Errorf("list failed: %w", err)
			}
			for _, d := range out.Directories {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	})
	return cmd
}
