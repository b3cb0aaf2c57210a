package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remtav/stac-browser/download"
)

var (
	downloadDir    string
	downloadAssets []string
	concurrency    int
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Search items and download their assets",
	Long: `Run a search like the search command and download the assets of every
matching item to <dir>/<item id>/. Use --assets to restrict the download to
some asset keys, for instance --assets B04,B08.`,
	Args: cobra.NoArgs,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	addSearchFlags(downloadCmd)
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "", "destination directory (default from config)")
	downloadCmd.Flags().StringSliceVar(&downloadAssets, "assets", nil, "asset keys to download (default is all)")
	downloadCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of assets downloaded at once (default from config)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	req, err := newSearchRequest()
	if err != nil {
		return err
	}

	items, err := req.run(cmd.Context())
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No items found matching the search criteria.")
		return nil
	}

	dir := cfg.Download.Directory
	if downloadDir != "" {
		dir = downloadDir
	}
	assets := cfg.Download.Assets
	if cmd.Flags().Changed("assets") {
		assets = downloadAssets
	}
	workers := cfg.Download.Concurrency
	if concurrency > 0 {
		workers = concurrency
	}

	downloader := download.New(logger,
		download.WithConcurrency(workers),
		download.WithAssets(assets...),
		download.WithProgress(func(step, total int, status string) {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", step, total, status)
		}),
	)

	result := downloader.Download(cmd.Context(), items, dir)
	if result.Requested == 0 {
		if len(assets) > 0 {
			fmt.Printf("None of the %d items has the assets %s.\n", len(items), strings.Join(assets, ", "))
		} else {
			fmt.Printf("None of the %d items has assets.\n", len(items))
		}
		return nil
	}

	fmt.Printf("\nDownloaded %d of %d assets to %s\n", len(result.Downloaded), result.Requested, dir)
	for _, failed := range result.Failed {
		fmt.Printf("✗ %s/%s: %s\n", failed.ItemID, failed.Asset, userMessage(failed.Err))
	}

	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d assets failed to download", len(result.Failed), result.Requested)
	}
	return nil
}
