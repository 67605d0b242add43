package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kplus/internal/cli"
	"github.com/hyperjump/kplus/internal/docid"
	"github.com/hyperjump/kplus/internal/export"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file|directory>",
		Short: "Parse acts and add them to the local store and article index",
		Long: `Parse a file, or every supported file under a directory, and store the
documents. Re-indexing a file updates the same document; unchanged files are
skipped. Do not run while "kplus server" uses the same data directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to stat path: %w", err)
			}
			if info.IsDir() {
				n, err := components.Indexer.IndexDirectory(cmd.Context(), path, cfg.Watch.Extensions)
				if err != nil {
					return fmt.Errorf("indexing directory failed after %d file(s): %w", n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d file(s) from %s\n", n, path)
				return nil
			}
			// Single file: no extension filter
			if err := components.Indexer.IndexFile(cmd.Context(), path, nil); err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}
			absPath, _ := filepath.Abs(path)
			fmt.Fprintf(cmd.OutOrStdout(), "Document indexed: %s\n", docid.FromPath(absPath))
			return nil
		},
	}
	return cmd
}

func showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <document-id>",
		Short: "Print a stored document or one of its articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articleNumber, _ := cmd.Flags().GetString("article")
			formatName, _ := cmd.Flags().GetString("format")

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

			if articleNumber != "" {
				article, err := components.Storage.GetArticle(cmd.Context(), args[0], articleNumber)
				if err != nil {
					return err
				}
				return cli.WriteArticle(cmd.OutOrStdout(), article, outputFormat(cmd))
			}
			doc, err := components.Storage.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if formatName == "stats" {
				return cli.WriteStatistics(cmd.OutOrStdout(), doc, outputFormat(cmd))
			}
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}
			if format == export.FormatXLSX {
				return fmt.Errorf("xlsx is binary; use \"kplus parse -f xlsx\" or the export endpoint")
			}
			return export.Write(cmd.OutOrStdout(), doc, format)
		},
	}
	cmd.Flags().StringP("article", "a", "", "print only the article with this number")
	cmd.Flags().StringP("format", "f", "md", "document format: md, json or stats")
	cmd.Flags().Bool("json", false, "print the article or statistics as JSON")
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			offset, _ := cmd.Flags().GetInt("offset")
			limit, _ := cmd.Flags().GetInt("limit")
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

			docs, err := components.Storage.ListDocuments(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			return cli.WriteDocumentList(cmd.OutOrStdout(), docs, outputFormat(cmd))
		},
	}
	cmd.Flags().Int("offset", 0, "skip this many documents")
	cmd.Flags().Int("limit", 50, "maximum number of documents")
	cmd.Flags().Bool("json", false, "print as JSON")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a stored document and its indexed articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if _, err := components.Storage.GetSourceStamp(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := components.Indexer.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deletion failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Document deleted: %s\n", args[0])
			return nil
		},
	}
}
