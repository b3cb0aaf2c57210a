package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-spatial/geom"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/remtav/stac-browser/filter"
	"github.com/remtav/stac-browser/stac"
)

var (
	apiTargets []string
	bboxFlag   string
	startFlag  string
	endFlag    string
	cloudMin   float64
	cloudMax   float64
	filterExpr string
	limit      int
	maxPages   int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search items in one or more STAC APIs",
	Long: `Search items by area, time range and cloud cover in one or more configured
STAC APIs. Every --api flag names an API id, optionally followed by the
collections to search:

  stac-browser search --api earth-search:sentinel-2-l2a \
    --bbox 5.9,45.8,10.5,47.8 --start 2024-06-01 --end 2024-06-30 --cloud-max 20

Results can be narrowed further with a filter expression evaluated on each
item, or the name of a filter from the configuration:

  --filter 'CloudCover < 10 && hasAsset("B04")'`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	addSearchFlags(searchCmd)
	searchCmd.Flags().StringVarP(&outputFormat, "output", "o", outputTable, "output format (table, json, yaml)")
}

// addSearchFlags registers the flags shared by search and download
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&apiTargets, "api", nil, "API id, optionally with collections: id[:col1,col2] (repeatable)")
	cmd.Flags().StringVar(&bboxFlag, "bbox", "", "bounding box: minx,miny,maxx,maxy")
	cmd.Flags().StringVar(&startFlag, "start", "", "start of the time range")
	cmd.Flags().StringVar(&endFlag, "end", "", "end of the time range (default is open ended)")
	cmd.Flags().Float64Var(&cloudMin, "cloud-min", 0, "minimum cloud cover in percent")
	cmd.Flags().Float64Var(&cloudMax, "cloud-max", 100, "maximum cloud cover in percent")
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression or configured filter name")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (default from config)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum number of pages per API (default from config)")

	_ = cmd.MarkFlagRequired("api")
	_ = cmd.MarkFlagRequired("start")
}

// apiTarget is one API to search and the collections to restrict it to
type apiTarget struct {
	ID          string
	Collections []string
}

// parseAPITarget parses "id" or "id:col1,col2"
func parseAPITarget(s string) (apiTarget, error) {
	id, cols, _ := strings.Cut(s, ":")
	if id = strings.TrimSpace(id); id == "" {
		return apiTarget{}, fmt.Errorf("invalid --api value %q: missing API id", s)
	}

	target := apiTarget{ID: id}
	for _, col := range strings.Split(cols, ",") {
		if col = strings.TrimSpace(col); col != "" {
			target.Collections = append(target.Collections, col)
		}
	}
	return target, nil
}

// parseBBox parses "minx,miny,maxx,maxy". An empty string means no bbox.
func parseBBox(s string) (*geom.Extent, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: expected minx,miny,maxx,maxy", s)
	}

	var values [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		values[i] = v
	}

	if values[0] > values[2] || values[1] > values[3] {
		return nil, fmt.Errorf("invalid bbox %q: min greater than max", s)
	}

	extent := geom.Extent(values)
	return &extent, nil
}

// parseTimeRange parses the --start and --end values. Start is required and
// must not be after end.
func parseTimeRange(start, end string) (time.Time, *time.Time, error) {
	if strings.TrimSpace(start) == "" {
		return time.Time{}, nil, stac.ErrMissingStartTime
	}

	startTime, err := dateparse.ParseAny(start)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid start time %q: %w", start, err)
	}

	if strings.TrimSpace(end) == "" {
		return startTime, nil, nil
	}

	endTime, err := dateparse.ParseAny(end)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid end time %q: %w", end, err)
	}

	if startTime.After(endTime) {
		return time.Time{}, nil, fmt.Errorf("%w: start %s is after end %s", stac.ErrInvalidTimeRange, start, end)
	}
	return startTime, &endTime, nil
}

// cloudCoverQuery builds the eo:cloud_cover query. It returns nil when the
// range covers everything.
func cloudCoverQuery(minCover, maxCover float64) (map[string]any, error) {
	if minCover < 0 || maxCover > 100 || minCover > maxCover {
		return nil, fmt.Errorf("invalid cloud cover range %g-%g", minCover, maxCover)
	}
	if minCover == 0 && maxCover == 100 {
		return nil, nil
	}
	return map[string]any{
		stac.PropertyCloudCover: map[string]any{
			"gte": minCover,
			"lte": maxCover,
		},
	}, nil
}

// resolveFilter returns the named filter from the configuration, or expr itself
func resolveFilter(expr string, named map[string]string) string {
	if resolved, ok := named[expr]; ok {
		return resolved
	}
	return expr
}

// searchRequest is a parsed search command line
type searchRequest struct {
	targets []apiTarget
	params  stac.SearchParams
	filter  filter.Filter
}

func newSearchRequest() (*searchRequest, error) {
	req := &searchRequest{}

	for _, s := range apiTargets {
		target, err := parseAPITarget(s)
		if err != nil {
			return nil, err
		}
		req.targets = append(req.targets, target)
	}

	bbox, err := parseBBox(bboxFlag)
	if err != nil {
		return nil, err
	}

	startTime, endTime, err := parseTimeRange(startFlag, endFlag)
	if err != nil {
		return nil, err
	}

	query, err := cloudCoverQuery(cloudMin, cloudMax)
	if err != nil {
		return nil, err
	}

	pageSize := cfg.Search.Limit
	if limit > 0 {
		pageSize = limit
	}
	if maxPages > 0 {
		cfg.Search.MaxPages = maxPages
	}

	req.params = stac.SearchParams{
		BBox:      bbox,
		StartTime: startTime,
		EndTime:   endTime,
		Limit:     pageSize,
	}
	// A nil map would be sent as a JSON null
	if query != nil {
		req.params.Query = query
	}

	if filterExpr != "" {
		compiled, err := filter.CompileFilter(resolveFilter(filterExpr, cfg.Search.Filters))
		if err != nil {
			return nil, err
		}
		req.filter = compiled
	}

	return req, nil
}

// run searches every target concurrently and returns the matching items,
// grouped by API in command line order.
func (r *searchRequest) run(ctx context.Context) ([]*stac.Item, error) {
	pages := make([][]*stac.Item, len(r.targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range r.targets {
		g.Go(func() error {
			items, err := r.searchAPI(gctx, target)
			if err != nil {
				return err
			}
			pages[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var items []*stac.Item
	for _, p := range pages {
		items = append(items, p...)
	}

	if r.filter == nil {
		return items, nil
	}

	matched, err := filter.NewConcurrentEvaluator().Apply(ctx, r.filter, items)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("found", len(items)).
		Int("matched", len(matched)).
		Msg("Filter applied")
	return matched, nil
}

func (r *searchRequest) searchAPI(ctx context.Context, target apiTarget) ([]*stac.Item, error) {
	api, err := loadAPI(target.ID)
	if err != nil {
		return nil, err
	}

	params := r.params
	params.Collections = target.Collections
	params.OnNextPage = func(a *stac.API) {
		logger.Info().Str("api", a.ID()).Msg("Loading next page")
	}

	logger.Info().
		Str("api", api.ID()).
		Strs("collections", target.Collections).
		Str("time", stac.FormatTimeRange(params.StartTime, params.EndTime)).
		Msg("Searching")

	results, err := api.SearchCollection(ctx, params)
	if err != nil {
		return nil, err
	}

	if results.Truncated {
		logger.Warn().
			Str("api", api.ID()).
			Int("pages", results.Pages).
			Int("items", len(results.Items)).
			Msg("More results available, raise --max-pages or narrow the search")
	}
	return results.Items, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(outputFormat); err != nil {
		return err
	}

	req, err := newSearchRequest()
	if err != nil {
		return err
	}

	items, err := req.run(cmd.Context())
	if err != nil {
		return err
	}

	if outputFormat != outputTable {
		if items == nil {
			items = []*stac.Item{}
		}
		return render(outputFormat, items)
	}

	if len(items) == 0 {
		fmt.Println("No items found matching the search criteria.")
		return nil
	}

	fmt.Printf("\nFound %d items:\n", len(items))
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("API", "Collection", "ID", "Datetime", "Cloud", "Platform", "Assets")
	for _, item := range items {
		_ = table.Append(itemRow(item))
	}
	return table.Render()
}
