package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/donation-matcher/internal/logger"
	"github.com/spigell/donation-matcher/internal/match"
)

const (
	PromptPrint          = "Print results"
	PromptJustifications = "Show justifications"
	PromptDump           = "Dump results to files"
	PromptExit           = "Exit"

	defaultConcurrency = 4
)

var errExit = errors.New("exit requested")

var actionPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptPrint, PromptJustifications, PromptDump, PromptExit},
}

// fileResult is the outcome of matching a single request file.
type fileResult struct {
	File string            `json:"file"`
	Best *match.BestMatch  `json:"result,omitempty"`
	Err  map[string]string `json:"error,omitempty"`
	Kind match.Kind        `json:"kind,omitempty"`
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match donation requests read from files",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringSliceP("file", "f", nil, "request file(s) in the getBest JSON format")
	matchCmd.Flags().BoolP("yes", "y", false, "do not ask what to do with the results")
	matchCmd.Flags().StringP("out", "o", "", "directory to dump results into. Default is a temporary file.")
	matchCmd.Flags().IntP("concurrency", "c", defaultConcurrency, "how many requests are matched at once")

	matchCmd.MarkFlagRequired("file")
}

func runMatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	files, _ := cmd.Flags().GetStringSlice("file")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	autoApprove, _ := cmd.Flags().GetBool("yes")
	outDir, _ := cmd.Flags().GetString("out")

	deps, err := buildService(ctx, config, logger)
	if err != nil {
		logger.Fatal("building match service", zap.Error(err))
	}
	defer deps.Close()

	results, err := matchFiles(ctx, deps.service, files, concurrency, logger)
	if err != nil {
		logger.Fatal("matching request files", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	if autoApprove {
		printResults(out, results)
		if outDir != "" {
			if err := handleAction(PromptDump, out, results, outDir, logger); err != nil {
				logger.Fatal("dumping results", zap.Error(err))
			}
		}
		return
	}

	for {
		_, action, err := actionPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, out, results, outDir, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// matchFiles runs the pipeline for every file with at most concurrency
// requests in flight. Per-file failures are recorded in the results; only a
// cancelled context aborts the whole run.
func matchFiles(ctx context.Context, matcher *match.Service, files []string, concurrency int, logger *zap.Logger) ([]fileResult, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = matchFile(ctx, matcher, file)
			if results[i].Err != nil {
				logger.Warn("request file failed", zap.String("file", file), zap.String("kind", string(results[i].Kind)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func matchFile(ctx context.Context, matcher *match.Service, file string) fileResult {
	result := fileResult{File: file}

	payload, err := os.ReadFile(file)
	if err != nil {
		result.Err = match.ErrorBody(err)
		result.Kind = match.KindInternal
		return result
	}

	best, err := matcher.GetBest(ctx, payload)
	if err != nil {
		result.Err = match.ErrorBody(err)
		result.Kind = match.KindOf(err)
		return result
	}

	result.Best = best
	return result
}

func handleAction(action string, out io.Writer, results []fileResult, outDir string, logger *zap.Logger) error {
	switch action {
	case PromptPrint:
		printResults(out, results)
		return nil
	case PromptJustifications:
		printJustifications(out, results)
		return nil
	case PromptDump:
		files, err := dumpResults(results, outDir)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping results to files", zap.Strings("files", files))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printResults(out io.Writer, results []fileResult) {
	for _, r := range results {
		if r.Best == nil {
			fmt.Fprintf(out, "%s: %s (%s)\n", r.File, r.Err["error"], r.Kind)
			continue
		}
		fmt.Fprintf(out, "%s: %s (ID: %s)\n", r.File, r.Best.Result.RecipientName, r.Best.Result.RecipientID)
	}
}

func printJustifications(out io.Writer, results []fileResult) {
	for _, r := range results {
		if r.Best == nil {
			continue
		}
		fmt.Fprintf(out, "%s -> %s:\n  %s\n\n", r.File, r.Best.Result.RecipientName, r.Best.Result.Justification)
	}
}

// dumpResults writes one JSON file per result into dir, or all results into
// a single temporary file when dir is empty.
func dumpResults(results []fileResult, dir string) ([]string, error) {
	if dir == "" {
		file, err := os.CreateTemp("", "match_results_*.json")
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := writeJSON(file, results); err != nil {
			return nil, err
		}
		return []string{file.Name()}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(results))
	for _, r := range results {
		base := strings.TrimSuffix(filepath.Base(r.File), filepath.Ext(r.File))
		name := filepath.Join(dir, base+".result.json")

		file, err := os.Create(name)
		if err != nil {
			return written, err
		}
		err = writeJSON(file, r)
		file.Close()
		if err != nil {
			return written, err
		}
		written = append(written, name)
	}

	return written, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
