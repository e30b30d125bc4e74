package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"memeboard/internal/collect"
	"memeboard/internal/config"
	"memeboard/internal/pipeline"
	"memeboard/internal/server"
	"memeboard/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "memeboard",
	Short:   "Community board trend rankings",
	Long:    "memeboard scrapes community boards, classifies posts by topic, and maintains deduplicated trend rankings.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys may live in a local .env file.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("memeboard", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/memeboard/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure boards, keywords, and the classifier.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Printf("Raw posts: %d\n", stats.RawPosts)
		fmt.Printf("Rankings:  %d\n", stats.Rankings)

		if len(stats.ByCategory) > 0 {
			fmt.Println("\nRankings by category:")
			categories := make([]string, 0, len(stats.ByCategory))
			for c := range stats.ByCategory {
				categories = append(categories, c)
			}
			sort.Strings(categories)
			for _, c := range categories {
				fmt.Printf("  %s: %d\n", c, stats.ByCategory[c])
			}
		}
		return nil
	},
}

// --- collect command ---

var collectPages int

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Scrape configured sources and store raw posts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Collecting posts from sources...")
		collector := collect.NewCollector(cfg)
		result, posts := collector.Collect(context.Background(), collectPages)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		for _, source := range sortedBySources(result.BySource) {
			fmt.Printf("  %s: %d\n", source, result.BySource[source])
		}
		for _, e := range result.Errors {
			fmt.Printf("  Error: %s\n", e)
		}

		ingestor := store.NewIngestor(db, cfg)
		written, errs := ingestor.IngestRawPosts(posts)
		for _, err := range errs {
			fmt.Printf("  Write error: %v\n", err)
		}
		fmt.Printf("\nStored %d raw posts.\n", written)
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&collectPages, "pages", 1, "Pages to scrape per source")
}

// --- run command ---

var (
	runPages int
	dryRun   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> classify -> route -> ingest",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		result := pipe.Run(context.Background(), runPages, dryRun)

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println("\nPipeline complete! Run 'memeboard serve' to browse the rankings.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runPages, "pages", 1, "Pages to scrape per source")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify without writing anything")
}

// --- review commands ---

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Export and import manual classifications",
}

var reviewExportPages int

var reviewExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export uncertain posts to an editable review file",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		path, count, err := pipe.ExportReview(context.Background(), reviewExportPages)
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println("Nothing to review.")
			return nil
		}

		fmt.Printf("Exported %d posts to %s\n", count, path)
		fmt.Println("Fill in the Category lines, then run: memeboard review import <file>")
		return nil
	},
}

var reviewImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an edited review file into the rankings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db)
		written, err := pipe.ImportReview(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d manual classifications.\n", written)
		return nil
	},
}

func init() {
	reviewExportCmd.Flags().IntVar(&reviewExportPages, "pages", 1, "Pages to scrape per source")
	reviewCmd.AddCommand(reviewExportCmd)
	reviewCmd.AddCommand(reviewImportCmd)
}

// --- sweep command ---

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete rankings older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ingestor := store.NewIngestor(db, cfg)
		deleted, err := ingestor.Sweep()
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d stale rankings.\n", deleted)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local rankings browser",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, cfg.Categories.Order, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func sortedBySources(counts map[string]int) []string {
	sources := make([]string, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool {
		if counts[sources[i]] != counts[sources[j]] {
			return counts[sources[i]] > counts[sources[j]]
		}
		return sources[i] < sources[j]
	})
	return sources
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "memeboard.db")
	return store.Open(dbPath)
}
