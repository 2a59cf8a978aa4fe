package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"horeca/storefront/internal/catalog"
	"horeca/storefront/internal/config"
	"horeca/storefront/internal/database"
	"horeca/storefront/internal/leads"
	"horeca/storefront/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "storefront",
		Short:        "HoReCa furniture storefront: catalog, cart and checkout API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the storefront HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), configPath)
			},
		},
		newCatalogCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()
	return svc.run(ctx)
}

func newCatalogCmd(configPath *string) *cobra.Command {
	var (
		category, subcategory, sortMode string
		priceMin, priceMax              string
		materials, colors               []string
		inStock                         bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the filtered and sorted catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ds, err := loadDataset(cmd.Context(), cfg, nil, zap.NewNop())
			if err != nil {
				return err
			}
			q := url.Values{}
			q.Set("category", category)
			q.Set("subcategory", subcategory)
			q.Set("sort", sortMode)
			q.Set("price_min", priceMin)
			q.Set("price_max", priceMax)
			q.Set("in_stock", strconv.FormatBool(inStock))
			q["material"] = materials
			q["color"] = colors

			return printProducts(cmd, catalog.Apply(ds.Products(), catalog.ParseFilter(q)))
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category or subcategory slug")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "subcategory slug")
	cmd.Flags().StringVar(&sortMode, "sort", "popular", "popular, new, price-asc or price-desc")
	cmd.Flags().StringVar(&priceMin, "price-min", "", "minimum price in roubles")
	cmd.Flags().StringVar(&priceMax, "price-max", "", "maximum price in roubles")
	cmd.Flags().StringSliceVar(&materials, "material", nil, "material, repeatable")
	cmd.Flags().StringSliceVar(&colors, "color", nil, "color, repeatable")
	cmd.Flags().BoolVar(&inStock, "in-stock", false, "only products with stock")
	return cmd
}

func printProducts(cmd *cobra.Command, products []catalog.Product) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tDIMENSIONS\tAVAILABILITY")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, catalog.FormatPrice(p.Price), p.DimensionsText, p.Availability)
	}
	fmt.Fprintf(w, "\n%d products\n", len(products))
	return w.Flush()
}

func newMigrateCmd(configPath *string) *cobra.Command {
	var importCatalog bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema and optionally import the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := database.Connect(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := catalog.EnsureSchema(ctx, db); err != nil {
				return err
			}
			if err := leads.NewStore(db, cfg.Cache.TTL).EnsureSchema(ctx); err != nil {
				return err
			}
			if importCatalog {
				ds, err := loadDataset(ctx, cfg, nil, zap.NewNop())
				if err != nil {
					return err
				}
				if err := catalog.Import(ctx, db, ds); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d products\n", len(ds.Products()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
	cmd.Flags().BoolVar(&importCatalog, "import", false, "import the seed or file catalog into Postgres")
	return cmd
}
