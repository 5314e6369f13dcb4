// Package cli implements the holocron operator command line.
package cli

import (
	"context"
	"encoding/json/jsontext"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/holocronapp/holocron-server/internal/domain"
	"github.com/holocronapp/holocron-server/internal/metadata/databank"
	"github.com/holocronapp/holocron-server/internal/validation"
	"github.com/holocronapp/holocron-server/internal/version"
)

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
	apiPrefix      = "/api/" + version.APIVersion
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	Server  string        `json:"server" validate:"required,http_url"`
	Timeout time.Duration `json:"timeout" validate:"gt=0"`
}

type app struct {
	flags     globalFlags
	validator *validation.Validator
	out       io.Writer
}

// NewRootCommand builds the holocron command tree writing results to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{validator: validation.New(), out: out}

	root := &cobra.Command{
		Use:   "holocron",
		Short: "Operator CLI for the Holocron enrichment service",
		Long: `holocron talks to a running Holocron server. It lists and fetches
enriched databank entities and exposes the enrichment controls:
availability status, cache clearing and forced SWAPI retry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.validator.Validate(a.flags)
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.flags.Server, "server", defaultServer, "Holocron server base URL")
	root.PersistentFlags().DurationVar(&a.flags.Timeout, "timeout", defaultTimeout, "Request timeout")

	root.AddCommand(
		a.categoriesCmd(),
		a.listCmd(),
		a.getCmd(),
		a.swapiCmd(),
		a.statusCmd(),
		a.cacheCmd(),
		a.retryCmd(),
		a.versionCmd(),
	)

	return root
}

func (a *app) client() *client {
	return newClient(a.flags.Server, a.flags.Timeout)
}

// print writes data as indented JSON.
func (a *app) print(data jsontext.Value) error {
	if len(data) == 0 {
		data = jsontext.Value("null")
	}
	enc := jsontext.NewEncoder(a.out, jsontext.WithIndent("  "), jsontext.SpaceAfterColon(true))
	if err := enc.WriteValue(data); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	return nil
}

func parseCategory(s string) (domain.Category, error) {
	category, ok := domain.ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("unknown category %q (run 'holocron categories')", s)
	}
	return category, nil
}

func (a *app) fetchAndPrint(ctx context.Context, path string, query url.Values) error {
	data, err := a.client().get(ctx, path, query)
	if err != nil {
		return err
	}
	return a.print(data)
}

func (a *app) categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List databank categories and their SWAPI mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fetchAndPrint(cmd.Context(), apiPrefix+"/categories", nil)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var params databank.ListParams

	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List one page of enriched entities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			p := params.WithDefaults(databank.DefaultLimit)
			if err := a.validator.Validate(p); err != nil {
				return err
			}

			query := url.Values{}
			query.Set("page", strconv.Itoa(p.Page))
			query.Set("limit", strconv.Itoa(p.Limit))
			if p.Search != "" {
				query.Set("search", p.Search)
			}
			return a.fetchAndPrint(cmd.Context(), apiPrefix+"/entities/"+string(category), query)
		},
	}

	cmd.Flags().IntVar(&params.Page, "page", databank.DefaultPage, "Page number")
	cmd.Flags().IntVar(&params.Limit, "limit", databank.DefaultLimit, "Page size")
	cmd.Flags().StringVar(&params.Search, "search", "", "Name filter")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <category> <id>",
		Short: "Fetch one enriched entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			path := apiPrefix + "/entities/" + string(category) + "/" + url.PathEscape(args[1])
			return a.fetchAndPrint(cmd.Context(), path, nil)
		},
	}
}

func (a *app) swapiCmd() *cobra.Command {
	var (
		search string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "swapi <endpoint>",
		Short: "Search SWAPI through the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if search != "" {
				query.Set("search", search)
			}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			return a.fetchAndPrint(cmd.Context(), apiPrefix+"/swapi/"+url.PathEscape(args[0]), query)
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Name filter")
	cmd.Flags().IntVar(&page, "page", 0, "SWAPI result page")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show SWAPI availability and cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.fetchAndPrint(cmd.Context(), apiPrefix+"/admin/enrichment", nil)
		},
	}
}

func (a *app) cacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the enrichment cache",
	}
	cache.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached enrichment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.client().post(cmd.Context(), apiPrefix+"/admin/enrichment/cache/clear")
			if err != nil {
				return err
			}
			return a.print(data)
		},
	})
	return cache
}

func (a *app) retryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Clear the cache and force a fresh SWAPI availability check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.client().post(cmd.Context(), apiPrefix+"/admin/enrichment/retry")
			if err != nil {
				return err
			}
			return a.print(data)
		},
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Version needs no server.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(a.out, "holocron %s (api %s)\n", version.Version, version.APIVersion)
			return err
		},
	}
}
