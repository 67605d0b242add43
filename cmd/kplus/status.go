package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kplus/internal/config"
	"github.com/hyperjump/kplus/internal/storage"
)

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	DatabasePath   string `json:"database_path,omitempty"`
	BleveIndexPath string `json:"bleve_index_path,omitempty"`
	StatusPolicy   string `json:"status_policy,omitempty"`
	WatchEnabled   bool   `json:"watch_enabled"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Documents      int64                 `json:"documents"`
	Articles       int64                 `json:"articles"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show document and article counts and storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			var status *statusResponse
			if serverURL != "" {
				status = &statusResponse{}
				if err := doJSON(cmd.Context(), http.MethodGet, serverURL+"/api/v1/status", nil, http.StatusOK, status); err != nil {
					return fmt.Errorf("status failed: %w", err)
				}
			} else {
				cfg, _, logger, err := setup(cmd, false)
				if err != nil {
					return err
				}
				defer func() { _ = logger.Sync() }()
				components, err := initializeComponents(cfg, logger)
				if err != nil {
					return err
				}
				defer components.Close()
				status, err = localStatus(cmd, components.Storage, cfg)
				if err != nil {
					return err
				}
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			writeStatusText(cmd.OutOrStdout(), status)
			return nil
		},
	}
	cmd.Flags().String("server", "", "server URL (empty = use the local store)")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func localStatus(cmd *cobra.Command, store storage.Storage, cfg *config.Config) (*statusResponse, error) {
	ctx := cmd.Context()
	docCount, err := store.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents failed: %w", err)
	}
	articleCount, err := store.CountArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("count articles failed: %w", err)
	}
	status := &statusResponse{
		Documents: docCount,
		Articles:  articleCount,
		Config: &statusConfigResponse{
			DatabasePath:   cfg.Storage.DatabasePath,
			BleveIndexPath: cfg.Storage.BleveIndexPath,
			StatusPolicy:   cfg.Parser.StatusPolicy,
			WatchEnabled:   len(cfg.Watch.Directories) > 0,
		},
	}
	paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.BleveIndexPath)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "documents:          %d   # stored acts\n", status.Documents)
	fmt.Fprintf(w, "articles:           %d   # indexed articles\n", status.Articles)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + article index on disk\n", *status.DiskUsageBytes)
	}
	if status.Config == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# configuration")
	if status.Config.StatusPolicy != "" {
		fmt.Fprintf(w, "status_policy:      %s\n", status.Config.StatusPolicy)
	}
	fmt.Fprintf(w, "watch_enabled:      %t\n", status.Config.WatchEnabled)
	if status.Config.DatabasePath != "" {
		fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
	}
	if status.Config.BleveIndexPath != "" {
		fmt.Fprintf(w, "bleve_index_path:   %s\n", status.Config.BleveIndexPath)
	}
}
