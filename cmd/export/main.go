package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/answer-evidence/internal/bootstrap"
	"github.com/kirillkom/answer-evidence/internal/config"
	"github.com/kirillkom/answer-evidence/internal/core/domain"
	"github.com/kirillkom/answer-evidence/internal/core/ports"
	"github.com/kirillkom/answer-evidence/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/answer-evidence/internal/observability/logging"
)

const serviceName = "candidate-export"

func main() {
	app := &cli.App{
		Name:  "candidate-export",
		Usage: "Collects candidate pools for a question list and writes a feature matrix",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "questions",
				Aliases:  []string{"q"},
				Usage:    "Path to a file with one question per line",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output .xlsx path",
				Value:   "features.xlsx",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Hits requested per engine (defaults to SEARCH_TOP_N)",
			},
		},
		Action: exportCommand,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func exportCommand(c *cli.Context) error {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	questions, err := readQuestions(c.String("questions"))
	if err != nil {
		return err
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("bootstrap error: %w", err)
	}
	defer app.Close()

	limit := c.Int("limit")
	if limit <= 0 {
		limit = cfg.SearchTopN
	}

	pools, err := collectPools(ctx, app.Pipeline, questions, limit)
	if err != nil {
		return err
	}

	out := c.String("out")
	if err := xlsx.NewWriter().WriteFeatureMatrix(out, app.Pipeline.Fields(), pools); err != nil {
		return fmt.Errorf("write feature matrix: %w", err)
	}
	logger.Info("feature_matrix_written", "path", out, "questions", len(pools))
	return nil
}

// collectPools pins the field ordering after the first pool so every row in
// the matrix shares one header.
func collectPools(ctx context.Context, collector ports.CandidateCollector, questions []domain.Question, limit int) ([]*domain.CandidatePool, error) {
	pools := make([]*domain.CandidatePool, 0, len(questions))
	for _, q := range questions {
		pool, err := collector.Collect(ctx, q, limit)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, err)
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

func readQuestions(path string) ([]domain.Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions: %w", err)
	}
	defer f.Close()

	var out []domain.Question
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		out = append(out, domain.Question{ID: fmt.Sprintf("line-%d", line), Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return out, nil
}
