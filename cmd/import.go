package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flatfind-sg/flatfind-cli/internal/dataset"
	"github.com/flatfind-sg/flatfind-cli/internal/fetcher"
)

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import resale transactions from a local or remote CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("import"); err != nil {
			return err
		}

		path := args[0]
		if isRemote(path) {
			local, err := downloadToTemp(ctx, newHTTPFetcher(), path)
			if err != nil {
				return err
			}
			defer os.Remove(local) //nolint:errcheck
			path = local
		}

		rows, err := dataset.ReadFile(path)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.UpsertListings(ctx, rows)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("file", args[0]),
			zap.Int("rows", len(rows)),
			zap.Int("upserted", n),
		)
		fmt.Printf("Imported %d rows from %s\n", n, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// downloadToTemp fetches the URL into a temp file, keeping the URL
// path's extension so the reader dispatches on the right format.
func downloadToTemp(ctx context.Context, f fetcher.Fetcher, rawURL string) (string, error) {
	ext := ""
	if u, err := url.Parse(rawURL); err == nil {
		ext = filepath.Ext(u.Path)
	}
	tmp, err := os.CreateTemp("", "flatfind-import-*"+ext)
	if err != nil {
		return "", eris.Wrap(err, "import: create temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", eris.Wrap(err, "import: create temp file")
	}
	if _, err := f.DownloadToFile(ctx, rawURL, tmp.Name()); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck
		return "", err
	}
	return tmp.Name(), nil
}
