package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/supperr-coder/dexscreener-monitor-bot/internal/alerting"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/chart"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/storage"
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/telegram"
)

// Export renders one token's price history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.Token == "" {
		return errors.New("--token must be provided")
	}

	chain := opts.Chain
	if chain == "" {
		chain = a.Config.Monitor.DefaultChain
	}
	token, err := telegram.NormalizeTokenAddress(chain, opts.Token)
	if err != nil {
		return err
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-a.Config.Retention.Window)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	points, err := store.ListPricesSince(ctx, chain, token, from)
	if err != nil {
		return err
	}
	points = clipPointsAfter(points, to)
	if len(points) == 0 {
		a.Logger.Info().Msg("no price points found for export window")
		return nil
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(points)).Int("exported", len(downsampled)).Msg("exporting price history")

	if opts.CSVPath != "" {
		if err := writePointsCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		symbol, err := store.TokenSymbol(ctx, chain, token)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("failed to load token symbol")
		}
		name := alerting.TokenLabel(symbol, token)
		span := downsampled[len(downsampled)-1].Bucket.Sub(downsampled[0].Bucket)
		title := alerting.ChartTitle(name, chain, span)
		if err := writePointsPNG(opts.PNGPath, downsampled, title); err != nil {
			return err
		}
	}

	return nil
}

// clipPointsAfter drops points at or past the exclusive upper bound. The
// store query only constrains the lower bound.
func clipPointsAfter(points []storage.PricePoint, to time.Time) []storage.PricePoint {
	cut := len(points)
	for i, p := range points {
		if !p.Bucket.Before(to) {
			cut = i
			break
		}
	}
	return points[:cut]
}

func downsamplePoints(points []storage.PricePoint, max int) []storage.PricePoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.PricePoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writePointsCSV(path string, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"bucket_ts", "chain_id", "token_address", "price_usd"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.Bucket.UTC().Format(time.RFC3339),
			point.ChainID,
			point.TokenAddress,
			point.PriceUSD.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writePointsPNG(path string, points []storage.PricePoint, title string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	png, err := chart.RenderPNG(points, title)
	if err != nil {
		return err
	}
	return os.WriteFile(path, png, 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
