package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"go.uber.org/zap"

	"quantipy/pkg/config"
	"quantipy/pkg/marketdata"
	"quantipy/pkg/quant"
	"quantipy/pkg/symbols"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	dataDir := flag.String("data", "", "override the data directory")
	mode := flag.String("mode", "fetch", "fetch, summary or prepare")
	pct := flag.Float64("percentile", 0.5, "percentile cut for prepare mode")
	index := flag.String("index", "All", "restrict prepare mode to one index")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "creating logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Fatal("Loading configuration", zap.Error(err))
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	extractor := symbols.NewExtractor(logger, cfg.DataDir)

	switch *mode {
	case "fetch":
		err = runFetch(cfg, extractor, logger)
	case "summary":
		err = runSummary(extractor, logger)
	case "prepare":
		err = runPrepare(extractor, *pct, *index, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Fatal("Run failed", zap.String("mode", *mode), zap.Error(err))
	}
}

// runFetch issues one GET per identifier found in the data directory and
// prints one block per identifier.
func runFetch(cfg *config.Config, extractor *symbols.Extractor, logger *zap.Logger) error {
	ids, err := extractor.Identifiers()
	if err != nil {
		return err
	}
	logger.Info("Extracted identifiers",
		zap.String("data_dir", cfg.DataDir),
		zap.Int("count", len(ids)))

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher := marketdata.NewFetcher(provider, os.Stdout, cfg.Output == config.OutputNDJSON, logger)
	results := fetcher.Run(ctx, ids)

	var ok, failed int
	for _, res := range results {
		if res.Kind == marketdata.KindOK {
			ok++
		} else {
			failed++
		}
	}
	logger.Info("Fetch run finished",
		zap.String("provider", provider.Name()),
		zap.Int("ok", ok),
		zap.Int("failed", failed))
	return nil
}

func newProvider(cfg *config.Config, logger *zap.Logger) (marketdata.Provider, error) {
	switch cfg.Provider {
	case config.ProviderAlpaca:
		return marketdata.NewAlpacaProvider(marketdata.AlpacaConfig{
			APIKey:    cfg.AlpacaKey,
			APISecret: cfg.AlpacaSecret,
			DateFrom:  cfg.DateFrom,
		}, logger)
	default:
		return marketdata.NewWTDClient(marketdata.WTDConfig{
			APIToken:       cfg.WTDToken,
			BaseURL:        cfg.BaseURL,
			DateFrom:       cfg.DateFrom,
			RequestsPerMin: cfg.RateLimitPerMin,
		}, logger)
	}
}

// loadSeries reads every qualifying CSV in the data directory.
func loadSeries(extractor *symbols.Extractor, logger *zap.Logger) (map[string]*quant.Series, error) {
	files, err := extractor.ListDataFiles()
	if err != nil {
		return nil, err
	}

	series := make(map[string]*quant.Series)
	for _, path := range symbols.FilterSources(files) {
		s, err := quant.ReadHistory(path)
		if err != nil {
			logger.Warn("Skipping history file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}
		series[s.Index] = s
	}
	return series, nil
}

func runSummary(extractor *symbols.Extractor, logger *zap.Logger) error {
	series, err := loadSeries(extractor, logger)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Index\tFirst\tLast\tMin\tMax")
	for _, key := range keys {
		sum := series[key].Summarise()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			sum.Index,
			sum.First.Format("2006-01-02"),
			sum.Last.Format("2006-01-02"),
			sum.Min.StringFixed(2),
			sum.Max.StringFixed(2))
	}
	return w.Flush()
}

func runPrepare(extractor *symbols.Extractor, pct float64, index string, logger *zap.Logger) error {
	series, err := loadSeries(extractor, logger)
	if err != nil {
		return err
	}

	rows, err := quant.Prepare(series, pct, index)
	if err != nil {
		return err
	}

	labels := quant.HorizonLabels()

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprint(w, "Index\tDate\tClose\tDrop")
	for _, label := range labels {
		fmt.Fprintf(w, "\t%s", label)
	}
	fmt.Fprintln(w)

	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s",
			row.Index,
			row.Date.Format("2006-01-02"),
			row.Close.StringFixed(2),
			row.Drop.StringFixed(2))
		for _, label := range labels {
			if ret, ok := row.Returns[label]; ok {
				fmt.Fprintf(w, "\t%s", ret.StringFixed(2))
			} else {
				fmt.Fprint(w, "\tN/A")
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}
