package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"compressbench/pkg/benchmark"
	"compressbench/pkg/config"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "compressbench.yaml", "YAML configuration file (defaults are used if it does not exist)")
	inputDir := flag.String("input", "", "Dataset directory (overrides dataset.dir)")
	outputDir := flag.String("output", "", "Output directory (overrides output.dir)")
	workers := flag.Int("workers", 0, "Number of images processed concurrently (overrides processing.workers)")
	limit := flag.Int("limit", 0, "Maximum number of images (overrides dataset.limit)")
	plotOnly := flag.Bool("plot", false, "Re-render figures from previously saved results instead of running the sweep")
	preview := flag.Int("preview", 0, "Run the classifier preprocessing wrapper on the first N images and exit")
	initConfig := flag.Bool("init", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *inputDir != "" {
		cfg.Dataset.Dir = *inputDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	if *limit > 0 {
		cfg.Dataset.Limit = *limit
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Output.Verbose)
	slog.SetDefault(logger)

	fmt.Println("================================")
	fmt.Println("IMAGE COMPRESSION BENCHMARK")
	fmt.Println("Rescale, DCT and SVD reconstructions compared across compression ratios")
	fmt.Println("================================")

	if *preview > 0 {
		if err := runPreview(cfg, *preview, logger); err != nil {
			log.Fatalf("Preview failed: %v", err)
		}
		return
	}

	resultsPath := benchmark.ResultsPath(cfg.Output.Dir, cfg.Output.TaskName)

	var res *benchmark.Results
	if *plotOnly {
		res, err = benchmark.LoadResults(resultsPath)
		if err != nil {
			log.Fatalf("Failed to load results: %v", err)
		}
		fmt.Printf("Loaded results for %d images from: %s\n", res.ImageCount, resultsPath)
	} else {
		fmt.Printf("Dataset: %s\n", cfg.Dataset.Dir)
		fmt.Printf("Methods: %v\n", cfg.Methods)
		fmt.Printf("Ratios: %v\n\n", cfg.Ratios)

		startTime := time.Now()
		res, err = runSweep(cfg, logger)
		if res != nil {
			if saveErr := saveResults(cfg, res); saveErr != nil {
				log.Printf("Warning: %v", saveErr)
			}
		}
		if err != nil {
			log.Fatalf("Sweep failed after %d images: %v", committed(res), err)
		}
		fmt.Printf("\nSweep completed in %.2f seconds over %d images\n", time.Since(startTime).Seconds(), res.ImageCount)
		fmt.Printf("Results saved to: %s\n", resultsPath)
		fmt.Printf("Summary saved to: %s\n", benchmark.SummaryPath(cfg.Output.Dir, cfg.Output.TaskName))
	}

	figures, err := renderFigures(cfg, res, logger)
	if err != nil {
		log.Fatalf("Plotting failed: %v", err)
	}
	for _, path := range figures {
		fmt.Printf("Figure saved to: %s\n", path)
	}

	summary, err := benchmark.Summarize(res, []string{"mean"})
	if err != nil {
		log.Fatalf("Failed to summarise results: %v", err)
	}
	fmt.Println()
	printSummary(os.Stdout, summary, cfg.Metrics)

	if cfg.Output.SaveReconstructions && !*plotOnly {
		dir := filepath.Join(cfg.Output.Dir, cfg.Output.TaskName+"_reconstructions")
		fmt.Printf("\nSaving reconstructions of the first image to: %s\n", dir)
		if err := saveReconstructions(cfg, dir); err != nil {
			log.Printf("Warning: Failed to save reconstructions: %v", err)
		}
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func committed(res *benchmark.Results) int {
	if res == nil {
		return 0
	}
	return res.ImageCount
}
