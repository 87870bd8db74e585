package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imgharvest/pkg/auth"
	"imgharvest/pkg/config"
	"imgharvest/pkg/harvester"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ui"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest [keywords...]",
	Short: "Search and download images for each keyword",
	Long: `Search the configured provider for each keyword in order and download
every distinct image URL it returns. A URL seen earlier in the run is
skipped, even under a different keyword.

Keywords come from positional arguments, --keywords, IMGHARVEST_KEYWORDS
or the configuration file. Without any, a default list of lab equipment
terms is used.`,
	Example: `  # Harvest the default keywords
  imgharvest

  # Ten images each for two keywords into ./photos
  imgharvest harvest -k multimeter,oscilloscope -p 10 -o ./photos

  # Use Bing and record dimensions as JSON files in imagenes-metadata
  imgharvest "bench power supply" --provider bing --metadata --store sidecar

  # Single attempt per URL, honour robots.txt, write Prometheus counters
  imgharvest --no-retry --respect-robots --metrics-file ./harvest.prom`,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	// The root command harvests too, so both carry the same flags
	for _, cmd := range []*cobra.Command{rootCmd, harvestCmd} {
		addHarvestFlags(cmd.Flags())
	}
}

func addHarvestFlags(fs *pflag.FlagSet) {
	fs.StringSliceP("keywords", "k", nil, "keywords to search (repeatable or comma-separated)")
	fs.IntP("per", "p", 20, "maximum images per keyword")
	fs.StringP("out", "o", "", "output directory (default \"imagenes\")")
	fs.String("provider", "", "search provider: duckduckgo or bing (default \"duckduckgo\")")
	fs.Bool("no-retry", false, "make a single attempt per URL")
	fs.Bool("metadata", false, "record width, height and size of each download")
	fs.String("store", "", "metadata store: postgres, sqlite or sidecar (default \"postgres\")")
	fs.Bool("respect-robots", false, "skip image URLs disallowed by the host's robots.txt")
	fs.String("metrics-file", "", "write Prometheus counters to this file when the run ends")
}

// collectFlags returns only the flags the user set, keyed for config.Load
func collectFlags(fs *pflag.FlagSet, args []string) map[string]interface{} {
	flags := make(map[string]interface{})

	keywords, _ := fs.GetStringSlice("keywords")
	keywords = append(keywords, args...)
	if len(keywords) > 0 {
		flags["keywords"] = keywords
	}

	if fs.Changed("per") {
		per, _ := fs.GetInt("per")
		flags["per-keyword"] = per
	}

	strFlags := map[string]string{
		"out":          "output",
		"provider":     "provider",
		"store":        "store",
		"metrics-file": "metrics-file",
	}
	for name, key := range strFlags {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			flags[key] = v
		}
	}

	for _, name := range []string{"no-retry", "metadata", "respect-robots"} {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			flags[name] = v
		}
	}

	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	return flags
}

// usesKeyringPassword reports whether the run needs a PostgreSQL password
// that the configuration did not supply
func usesKeyringPassword(cfg *config.Config) bool {
	return cfg.Metadata.Enabled && cfg.Metadata.Store.Password == "" &&
		strings.EqualFold(cfg.Metadata.Store.Driver, "postgres")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, collectFlags(cmd.Flags(), args))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	if usesKeyringPassword(cfg) {
		if auth.NewManager().ResolvePassword(&cfg.Metadata.Store) {
			log.Debug("Metadata store password loaded from credential store")
		}
	}

	out := cmd.OutOrStdout()
	if !quiet {
		ui.PrintInfo(out, "Provider", cfg.Search.Provider)
		ui.PrintInfo(out, "Output", cfg.Output.Directory)
	}

	run, err := harvester.New(cfg, ui.NewReporter(out, quiet), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary := run.Harvest(ctx, cfg.Search.Keywords)
	if summary.Interrupted {
		ui.PrintWarning(cmd.ErrOrStderr(), "Interrupted", fmt.Sprintf("%d images downloaded before stopping", summary.Total))
	}
	return nil
}
