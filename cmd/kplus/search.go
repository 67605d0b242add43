package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/cli"
	"github.com/hyperjump/kplus/internal/models"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchFunc runs one query against the server or the local store.
type searchFunc func(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)

// searchWithAutoFuzzy retries a query without hits as a fuzzy query and keeps the
// fuzzy response if it found something.
func searchWithAutoFuzzy(ctx context.Context, run searchFunc, q *models.SearchQuery) (*models.SearchResponse, error) {
	response, err := run(ctx, q)
	if err != nil {
		return nil, err
	}
	if q.Fuzzy || response.Total > 0 {
		return response, nil
	}
	fuzzy := *q
	fuzzy.Fuzzy = true
	fuzzyResponse, err := run(ctx, &fuzzy)
	if err == nil && fuzzyResponse.Total > 0 {
		return fuzzyResponse, nil
	}
	return response, nil
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed articles",
		Long: `Search article titles, chapter titles and article text.

The query is all remaining arguments joined by spaces. When nothing matches,
the search is retried with typo tolerance, and a spelling suggestion is shown
if the index knows a close term.

The running server is used when reachable (it holds the index lock);
otherwise the local store is opened directly.`,
		Example: `  kplus search контрактная система
  kplus search --fuzzy закупкм
  kplus search --doc-type "ФЕДЕРАЛЬНЫЙ ЗАКОН" --limit 20 заказчик
  kplus search --json контракт`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queryStr := buildSearchQuery(args)
			if queryStr == "" {
				return errors.New("query cannot be empty")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			fuzzy, _ := cmd.Flags().GetBool("fuzzy")
			docType, _ := cmd.Flags().GetString("doc-type")
			docID, _ := cmd.Flags().GetString("doc")
			serverURL, _ := cmd.Flags().GetString("server")

			query := &models.SearchQuery{
				Query:   queryStr,
				Limit:   limit,
				Fuzzy:   fuzzy,
				DocType: docType,
				DocID:   docID,
			}

			if serverURL != "" {
				response, err := searchWithAutoFuzzy(cmd.Context(), func(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
					return searchViaHTTP(ctx, serverURL, q)
				}, query)
				if err == nil {
					return cli.WriteSearchResults(cmd.OutOrStdout(), response, outputFormat(cmd))
				}
				var netErr net.Error
				if cmd.Flags().Changed("server") || !errors.As(err, &netErr) {
					return fmt.Errorf("search failed: %w", err)
				}
			}

			// Direct storage access (when server is not running).
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
			logger.Debug("searching local store", zap.String("query", queryStr))

			response, err := searchWithAutoFuzzy(cmd.Context(), components.Engine.Search, query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return cli.WriteSearchResults(cmd.OutOrStdout(), response, outputFormat(cmd))
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "number of results (default from config)")
	cmd.Flags().Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	cmd.Flags().String("doc-type", "", "only search acts of this type")
	cmd.Flags().String("doc", "", "only search the document with this ID")
	cmd.Flags().String("server", defaultServerURL, `server URL (empty = always use the local store)`)
	cmd.Flags().Bool("json", false, "print results as JSON")
	return cmd
}

func searchViaHTTP(ctx context.Context, serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	var response models.SearchResponse
	if err := doJSON(ctx, http.MethodPost, serverURL+"/api/v1/search", bytes.NewReader(body), http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// doJSON sends a request and decodes a JSON response with the expected status into out.
func doJSON(ctx context.Context, method, url string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
