package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/remtav/stac-browser/stac"
)

// collectionsCmd represents the collections command
var collectionsCmd = &cobra.Command{
	Use:   "collections <api-id>",
	Short: "List the collections of a STAC API",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollections,
}

func init() {
	rootCmd.AddCommand(collectionsCmd)

	collectionsCmd.Flags().StringVarP(&outputFormat, "output", "o", outputTable, "output format (table, json, yaml)")
}

func runCollections(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}

	api, err := loadAPI(args[0])
	if err != nil {
		return err
	}

	if err := api.Load(cmd.Context()); err != nil {
		return err
	}

	collections := api.Collections()
	logger.Debug().
		Str("api", api.ID()).
		Int("collections", len(collections)).
		Msg("Collections loaded")

	switch outputFormat {
	case outputJSON, outputYAML:
		return render(outputFormat, collections)
	}

	if len(collections) == 0 {
		fmt.Println("No collections found.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Title", "License")
	for _, c := range collections {
		_ = table.Append(collectionRow(c))
	}
	return table.Render()
}

func collectionRow(c *stac.Collection) []string {
	return []string{c.ID, c.DisplayTitle(), c.License}
}
