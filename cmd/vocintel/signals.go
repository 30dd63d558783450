package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/pipeline"
	"github.com/TobiSchelling/VoCIntel/internal/search"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Search the web for mentions and manage web signals",
}

var (
	searchCustom string
	searchCount  int
)

var signalsSearchCmd = &cobra.Command{
	Use:   "search [query-ids...]",
	Short: "Run preset (or custom) searches without analyzing the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		queries, err := selectQueries(args, searchCustom)
		if err != nil {
			return err
		}

		searcher, _, err := newSearcher()
		if err != nil {
			return err
		}

		count := searchCount
		if count <= 0 {
			count = cfg.Search.ResultCount
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		batches := search.RunBatch(ctx, searcher, queries, count, cfg.Search.Concurrency)
		if listJSON {
			return printJSON(batches)
		}
		for _, b := range batches {
			fmt.Printf("\n%s (%s)\n", b.QueryLabel, b.QueryID)
			if b.Error != "" {
				fmt.Printf("  Error: %s\n", b.Error)
				continue
			}
			if len(b.Results) == 0 {
				fmt.Println("  No results")
			}
			for _, r := range b.Results {
				fmt.Printf("  - [%s] %s\n    %s\n", r.Source, r.Title, r.URL)
			}
		}
		return nil
	},
}

func selectQueries(ids []string, custom string) ([]search.Query, error) {
	if custom != "" {
		return []search.Query{{ID: "custom", Label: "Custom Search", Query: custom}}, nil
	}
	presets := pipeline.Presets(cfg)
	if len(ids) == 0 {
		return presets, nil
	}
	queries := search.Select(presets, ids)
	if len(queries) != len(ids) {
		return nil, fmt.Errorf("unknown query id in %s (available: %s)", strings.Join(ids, ", "), presetIDs(presets))
	}
	return queries, nil
}

func presetIDs(presets []search.Query) string {
	ids := make([]string, 0, len(presets))
	for _, q := range presets {
		ids = append(ids, q.ID)
	}
	return strings.Join(ids, ", ")
}

var (
	analyzeTitle string
	analyzeDesc  string
	analyzeLabel string
)

var signalsAnalyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "Analyze a single web page and store it as a web signal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		r := search.Result{
			Title:       analyzeTitle,
			URL:         args[0],
			Description: analyzeDesc,
			Age:         "Unknown",
			Source:      search.SourceFromURL(args[0]),
		}
		rec, err := collect.NewCollector(s, newGateway(ctx)).AnalyzeResult(ctx, r, analyzeLabel, "")
		if err != nil {
			return err
		}

		fmt.Printf("Stored web signal %s\n", rec.ID)
		fmt.Printf("  Theme:     %s\n", rec.Theme)
		fmt.Printf("  Sentiment: %s\n", rec.Sentiment)
		fmt.Printf("  Relevance: %s\n", rec.Relevance)
		for _, p := range rec.KeyPoints {
			fmt.Printf("  - %s\n", p)
		}
		return nil
	},
}

var (
	harvestQueries []string
	harvestCount   int
	harvestMax     int
	harvestDryRun  bool
)

var signalsHarvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run the harvest: search -> fetch -> analyze",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		searcher, _, err := newSearcher()
		if err != nil {
			return err
		}

		pipe := pipeline.New(cfg, s, searcher, collect.NewCollector(s, newGateway(ctx)))
		opts := pipeline.Options{QueryIDs: harvestQueries, Count: harvestCount, MaxAnalyze: harvestMax}

		var result *pipeline.Result
		if harvestDryRun {
			result = pipe.DryRun(ctx, opts)
		} else {
			result = pipe.Run(ctx, opts)
		}

		failed := false
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				failed = true
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !harvestDryRun && !failed {
			fmt.Printf("\nHarvest complete! %d new web signals. Run 'vocintel serve' to view the dashboard.\n", len(result.Signals))
		}
		return nil
	},
}

var signalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored web signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.Signals.List(ctx)
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(items)
		}
		if len(items) == 0 {
			fmt.Println("No web signals yet. Run: vocintel signals harvest")
			return nil
		}
		for _, r := range items {
			fmt.Printf("%s  %s  [%s/%s] %s\n", r.ID, r.Timestamp.Local().Format("2006-01-02"), r.Sentiment, r.Relevance, truncate(r.Title, 80))
			fmt.Printf("    %s  %s\n", r.WebSource, r.WebURL)
			if r.Theme != "" {
				fmt.Printf("    %s\n", truncate(r.Theme, 100))
			}
		}
		return nil
	},
}

var signalsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all web signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes && !confirm("Delete all web signals?") {
			return fmt.Errorf("aborted")
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Signals.Clear(ctx); err != nil {
			return err
		}
		zap.S().Debug("Web signals cleared")
		fmt.Println("Web signals cleared.")
		return nil
	},
}

func init() {
	signalsSearchCmd.Flags().StringVar(&searchCustom, "custom", "", "Run a custom query instead of presets")
	signalsSearchCmd.Flags().IntVarP(&searchCount, "count", "n", 0, "Results per query (default from config)")
	signalsSearchCmd.Flags().BoolVar(&listJSON, "json", false, "Print batch results as JSON")

	signalsAnalyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "Page title")
	signalsAnalyzeCmd.Flags().StringVar(&analyzeDesc, "description", "", "Page description or excerpt")
	signalsAnalyzeCmd.Flags().StringVar(&analyzeLabel, "label", "Manual", "Search label recorded with the signal")
	_ = signalsAnalyzeCmd.MarkFlagRequired("title")

	h := signalsHarvestCmd.Flags()
	h.StringSliceVarP(&harvestQueries, "queries", "q", nil, "Preset query ids to run (default all)")
	h.IntVarP(&harvestCount, "count", "n", 0, "Results per query (default from config)")
	h.IntVar(&harvestMax, "max", 0, "Analyze at most this many new results (0 = all)")
	h.BoolVar(&harvestDryRun, "dry-run", false, "Show the planned steps without calling any external service")

	signalsListCmd.Flags().BoolVar(&listJSON, "json", false, "Print records as JSON")
	signalsClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")

	signalsCmd.AddCommand(signalsSearchCmd)
	signalsCmd.AddCommand(signalsAnalyzeCmd)
	signalsCmd.AddCommand(signalsHarvestCmd)
	signalsCmd.AddCommand(signalsListCmd)
	signalsCmd.AddCommand(signalsClearCmd)
}
