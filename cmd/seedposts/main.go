package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/contentguard/contentguard/internal/logger"
	"github.com/contentguard/contentguard/llmgen"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:  "seedposts",
		Usage: "generate a synthetic labeled finance-post dataset for moderation testing",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Value: 200,
				Usage: "number of posts to generate",
			},
			&cli.StringFlag{
				Name:  "out",
				Value: "data/finance_posts.json",
				Usage: "output file path",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "json",
				Usage: "output format: json or csv",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Value: 42,
				Usage: "random seed for reproducible output",
			},
			&cli.Float64Flag{
				Name:  "safe-ratio",
				Value: 0.50,
				Usage: "fraction of safe posts",
			},
			&cli.Float64Flag{
				Name:  "mild-ratio",
				Value: 0.25,
				Usage: "fraction of mild violations",
			},
			&cli.Float64Flag{
				Name:  "moderate-ratio",
				Value: 0.15,
				Usage: "fraction of moderate violations (remainder is severe)",
			},
			&cli.BoolFlag{
				Name:  "llm",
				Usage: "rewrite template posts through a text-generation provider",
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			var provider llmgen.Provider
			if c.Bool("llm") {
				chain := llmgen.NewChain(log,
					llmgen.NewGeminiProvider("", log),
					llmgen.NewOllamaProvider("", "", log),
				)
				if !chain.Available(ctx) {
					log.Warn("no generation provider available, falling back to templates")
				} else {
					provider = chain
				}
			}

			gen := NewGenerator(c.Int64("seed"), provider)

			start := time.Now()
			posts := gen.Dataset(ctx, c.Int("count"),
				c.Float64("safe-ratio"), c.Float64("mild-ratio"), c.Float64("moderate-ratio"))
			log.Info("generated dataset",
				"posts", len(posts), "elapsed", time.Since(start).String())

			out := c.String("out")
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			switch c.String("format") {
			case "json":
				if err := writeJSON(out, posts); err != nil {
					return err
				}
			case "csv":
				if err := writeCSV(out, posts); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (use json or csv)", c.String("format"))
			}

			byLabel := make(map[string]int)
			for _, p := range posts {
				byLabel[p.Label]++
			}
			log.Info("dataset saved", "file", out, "distribution", byLabel)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("seedposts failed", "error", err)
		os.Exit(1)
	}
}

func writeJSON(path string, posts []LabeledPost) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(posts); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func writeCSV(path string, posts []LabeledPost) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"post_id", "username", "content", "label", "severity", "expected_action", "timestamp"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range posts {
		record := []string{
			p.PostID, p.Username, p.Content, p.Label,
			strconv.Itoa(p.Severity), p.ExpectedAction,
			p.Timestamp.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return w.Error()
}
