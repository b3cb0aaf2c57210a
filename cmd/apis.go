package cmd

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/remtav/stac-browser/auth"
	"github.com/remtav/stac-browser/config"
)

var (
	apiID       string
	apiTitle    string
	apiHref     string
	authType    string
	authKey     string
	authValue   string
	authToken   string
	promptToken bool
)

// apisCmd represents the apis command
var apisCmd = &cobra.Command{
	Use:   "apis",
	Short: "Manage the configured STAC APIs",
}

var apisListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured STAC APIs",
	Args:  cobra.NoArgs,
	RunE:  runAPIsList,
}

var apisAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a STAC API or replace the one with the same id",
	Long: `Add a STAC API endpoint to the configuration. An API already configured with
the same id is replaced.

Authentication is either a query parameter appended to every request
(--auth-type query-parameter --auth-key KEY --auth-value VALUE) or a bearer
token sent in the Authorization header (--auth-type bearer-token --token TOKEN).
Use --prompt-token to type the token without echoing it.`,
	Args: cobra.NoArgs,
	RunE: runAPIsAdd,
}

var apisRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a configured STAC API",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIsRemove,
}

func init() {
	rootCmd.AddCommand(apisCmd)
	apisCmd.AddCommand(apisListCmd, apisAddCmd, apisRemoveCmd)

	apisAddCmd.Flags().StringVar(&apiID, "id", "", "API id")
	apisAddCmd.Flags().StringVar(&apiTitle, "title", "", "display title (default is the id)")
	apisAddCmd.Flags().StringVar(&apiHref, "href", "", "API root URL")
	apisAddCmd.Flags().StringVar(&authType, "auth-type", "", "authentication type (query-parameter, bearer-token)")
	apisAddCmd.Flags().StringVar(&authKey, "auth-key", "", "query parameter name")
	apisAddCmd.Flags().StringVar(&authValue, "auth-value", "", "query parameter value")
	apisAddCmd.Flags().StringVar(&authToken, "token", "", "bearer token")
	apisAddCmd.Flags().BoolVar(&promptToken, "prompt-token", false, "read the bearer token from the terminal")

	_ = apisAddCmd.MarkFlagRequired("id")
	_ = apisAddCmd.MarkFlagRequired("href")
	apisAddCmd.MarkFlagsMutuallyExclusive("token", "prompt-token")
}

func runAPIsList(cmd *cobra.Command, args []string) error {
	if len(cfg.APIs) == 0 {
		fmt.Println("No APIs configured. Add one with 'stac-browser apis add'.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Title", "Href", "Auth")
	for _, api := range cfg.APIs {
		_ = table.Append(apiRow(api))
	}
	return table.Render()
}

func apiRow(api config.APIConfig) []string {
	kind := "none"
	if api.Auth != nil && api.Auth.Type != "" {
		kind = api.Auth.Type
	}
	return []string{api.ID, api.Document().Title, api.Href, kind}
}

func runAPIsAdd(cmd *cobra.Command, args []string) error {
	if promptToken {
		fmt.Fprint(os.Stderr, "Bearer token: ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		authToken = strings.TrimSpace(string(tokenBytes))
		if authType == "" {
			authType = string(auth.KindBearerToken)
		}
	}

	api := config.APIConfig{
		ID:    strings.TrimSpace(apiID),
		Title: strings.TrimSpace(apiTitle),
		Href:  strings.TrimSpace(apiHref),
		Auth:  authConfigFromFlags(authType, authKey, authValue, authToken),
	}

	if err := cfg.SetAPI(api); err != nil {
		return fmt.Errorf("invalid API: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	logger.Info().
		Str("id", api.ID).
		Str("href", api.Href).
		Str("path", cfg.Path()).
		Msg("API saved")
	return nil
}

// authConfigFromFlags returns nil when no authentication was requested
func authConfigFromFlags(kind, key, value, token string) *auth.Config {
	if kind == "" && token != "" {
		kind = string(auth.KindBearerToken)
	}
	if kind == "" && key != "" {
		kind = string(auth.KindQueryParameter)
	}
	if kind == "" || kind == "none" {
		return nil
	}
	return &auth.Config{Type: kind, Key: key, Value: value, Token: token}
}

func runAPIsRemove(cmd *cobra.Command, args []string) error {
	if err := cfg.RemoveAPI(args[0]); err != nil {
		return err
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	logger.Info().Str("id", args[0]).Msg("API removed")
	return nil
}
