package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/cli"
	"github.com/hyperjump/kplus/internal/export"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/pipeline"
)

func outputFormat(cmd *cobra.Command) cli.OutputFormat {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return cli.OutputJSON
	}
	return cli.OutputText
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse one act and print or write it",
		Long: `Parse one act file (PDF, DOCX, ODT, RTF, TXT, MD) or standard input ("-")
and render it. Nothing is stored.

Formats: md, json, xlsx, stats. Without --out, md, json and stats go to
standard output and xlsx is written to the configured export directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatName, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")

			cfg, _, logger, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			p, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}

			doc, err := parseInput(cmd, p, args[0], title)
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
			if out == "" && format == export.FormatXLSX {
				out = filepath.Join(cfg.Export.OutputDir, export.SafeFileName(doc.Metadata.Number)+".xlsx")
			}
			if out == "" {
				return export.Write(cmd.OutOrStdout(), doc, format)
			}
			if err := export.ExportFile(doc, out, format); err != nil {
				return err
			}
			logger.Info("document written", zap.String("path", out))
			fmt.Fprintf(cmd.ErrOrStderr(), "Written: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "md", "output format: md, json, xlsx or stats")
	cmd.Flags().StringP("out", "o", "", "output file (default: standard output)")
	cmd.Flags().String("title", "", "title used when the act has no recognizable title")
	cmd.Flags().Bool("json", false, "print statistics as JSON (with --format stats)")
	return cmd
}

// parseInput parses path, or standard input when path is "-".
func parseInput(cmd *cobra.Command, p *pipeline.Pipeline, path, title string) (*models.Document, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, fmt.Errorf("empty input")
		}
		return p.ParseText(string(data), "", title), nil
	}
	return p.ParseFileWithTitle(cmd.Context(), path, title)
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Parse every act in a directory and write the results",
		Long: `Parse every supported file in a directory concurrently and write each
document in the requested formats to the output directory. A file that fails
to parse is reported and the batch continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, logger, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				out = cfg.Export.OutputDir
			}
			workers, _ := cmd.Flags().GetInt("workers")
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Parser.Workers
			}
			formatNames, _ := cmd.Flags().GetStringSlice("format")
			if !cmd.Flags().Changed("format") {
				formatNames = cfg.Export.Formats
			}
			formats, err := parseFormats(formatNames)
			if err != nil {
				return err
			}
			recursive, _ := cmd.Flags().GetBool("recursive")

			p, err := newPipeline(cfg, logger)
			if err != nil {
				return err
			}
			files, err := pipeline.CollectFiles(args[0], recursive)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported files in %s", args[0])
			}
			logger.Info("batch starting", zap.Int("files", len(files)), zap.Int("workers", workers))

			res := p.ParseBatch(cmd.Context(), files, workers)
			written, err := export.ExportBatch(res.Documents(), out, formats)
			summary := cli.NewBatchSummary(res, written)
			if writeErr := cli.WriteBatchSummary(cmd.OutOrStdout(), summary, outputFormat(cmd)); writeErr != nil {
				return writeErr
			}
			if err != nil {
				return err
			}
			if len(summary.Failed) > 0 {
				return fmt.Errorf("%d of %d files failed", len(summary.Failed), len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "output directory (default from config)")
	cmd.Flags().IntP("workers", "w", 0, "concurrent parses (0 = one per CPU; default from config)")
	cmd.Flags().StringSliceP("format", "f", nil, "output formats: md, json, xlsx (default from config)")
	cmd.Flags().BoolP("recursive", "r", false, "include subdirectories")
	cmd.Flags().Bool("json", false, "print the summary as JSON")
	return cmd
}

func parseFormats(names []string) ([]export.Format, error) {
	formats := make([]export.Format, 0, len(names))
	for _, name := range names {
		f, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output format given")
	}
	return formats, nil
}
