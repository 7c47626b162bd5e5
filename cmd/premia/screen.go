package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/premia/internal/app"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/screener"
)

var (
	screenTickers          []string
	screenType             string
	screenMaxResults       int
	screenMaxPerUnderlying int
	screenJSON             bool
	screenDigest           bool
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run one screen and print the ranked contracts",
	Long: `Run one screen over the configured universe, or over --tickers, and print
the ranked contracts followed by every exclusion and provider error.`,
	RunE: runScreen,
}

func init() {
	screenCmd.Flags().StringSliceVarP(&screenTickers, "tickers", "t", nil, "underlyings to screen (overrides screen.universe)")
	screenCmd.Flags().StringVar(&screenType, "type", "", "option type: put or call (overrides screen.option_type)")
	screenCmd.Flags().IntVarP(&screenMaxResults, "max-results", "n", -1, "cap the ranked list; 0 means unlimited")
	screenCmd.Flags().IntVar(&screenMaxPerUnderlying, "max-per-underlying", -1, "cap ranked contracts per underlying; 0 means unlimited")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "print the full result as JSON")
	screenCmd.Flags().BoolVar(&screenDigest, "digest", false, "append an LLM digest of the top contracts")

	rootCmd.AddCommand(screenCmd)
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}

	req, err := a.DefaultRequest()
	if err != nil {
		return err
	}
	if req, err = applyScreenFlags(req); err != nil {
		return err
	}

	res, err := a.Screen(ctx, req)
	if err != nil {
		return err
	}

	var text string
	if screenDigest {
		if text, err = a.Digest(ctx, res); err != nil {
			log.Warn("digest failed", zap.Error(err))
		}
	}

	out := cmd.OutOrStdout()
	if screenJSON {
		return writeJSON(out, res, text)
	}
	printResult(out, res)
	if text != "" {
		fmt.Fprintf(out, "\nDigest:\n%s\n", text)
	}
	return nil
}

// applyScreenFlags layers explicitly set flags over the configured request
func applyScreenFlags(req screener.Request) (screener.Request, error) {
	if len(screenTickers) > 0 {
		req.Universe = screenTickers
	}
	if screenType != "" {
		t, err := core.ParseOptionType(screenType)
		if err != nil {
			return req, core.WrapError(core.ErrConfigInvalid, err)
		}
		req.OptionType = t
	}
	if screenMaxResults >= 0 {
		req.MaxResults = screenMaxResults
	}
	if screenMaxPerUnderlying >= 0 {
		req.MaxPerUnderlying = screenMaxPerUnderlying
	}
	return req, nil
}

func writeJSON(w io.Writer, res *screener.Result, digest string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if digest == "" {
		return enc.Encode(res)
	}
	return enc.Encode(struct {
		*screener.Result
		Digest string `json:"digest"`
	}{res, digest})
}
