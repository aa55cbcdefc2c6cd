package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/request"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/app"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/config"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/isodate"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/logging"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/metrics"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/service"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/validation"
)

type composeFlags struct {
	stock    string
	start    string
	end      string
	market   string
	split    bool
	dividend bool
	pretty   bool
}

func newComposeCmd() *cobra.Command {
	var f composeFlags
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose one adjusted series and print the JSON response",
		Long: `Compose one adjusted daily series with the same provider chain as the
server and print the response body.

Examples:
  adjustctl compose --stock 2330 --start 2024-01-01 --end 2024-12-31
  adjustctl compose --stock 6488 --market TPEX --start 113/01/01 --end 113/06/30 --split`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.stock, "stock", "", "Stock number (required)")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (required)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (required)")
	cmd.Flags().StringVar(&f.market, "market", "TWSE", "Market (TWSE|TPEX)")
	cmd.Flags().BoolVar(&f.split, "split", false, "Apply split adjustment explicitly")
	cmd.Flags().BoolVar(&f.dividend, "dividend", false, "Apply dividend adjustment explicitly")
	cmd.Flags().BoolVar(&f.pretty, "pretty", true, "Indent the JSON output")
	_ = cmd.MarkFlagRequired("stock")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func runCompose(cmd *cobra.Command, f composeFlags) error {
	req, err := validation.ValidateAdjustedPrice(request.AdjustedPriceRequest{
		StockNo:   f.stock,
		StartDate: f.start,
		EndDate:   f.end,
		Market:    f.market,
		Split:     fmt.Sprint(f.split),
		Dividend:  fmt.Sprint(f.dividend),
	}, isodate.Today())
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level, "console")
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	a := app.New(cfg, metrics.New())
	ctx := logger.WithContext(cmd.Context())

	result, composeErr := a.AdjustedPrice.Compose(ctx, req)
	var ce *service.CompositionError
	switch {
	case composeErr == nil:
	case errors.As(composeErr, &ce) && ce.Result != nil:
		result = ce.Result
	default:
		return composeErr
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if f.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return composeErr
}
