package app

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// Subs prints the active subscriptions.
func (a *App) Subs(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	subs, err := store.ListActiveSubscriptions(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stdout, "no active subscriptions")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tChat\tChain\tToken\tSymbol\tThreshold%\tPrev Price\tPrev At (UTC)")

	for _, sub := range subs {
		symbol, err := store.TokenSymbol(ctx, sub.ChainID, sub.TokenAddress)
		if err != nil {
			a.Logger.Warn().Err(err).Str("token", sub.TokenAddress).Msg("failed to load token symbol")
		}

		prevPrice := "-"
		if sub.PrevPriceUSD != nil {
			prevPrice = sub.PrevPriceUSD.String()
		}
		prevAt := "-"
		if sub.PrevPriceAt != nil {
			prevAt = sub.PrevPriceAt.UTC().Format(time.RFC3339)
		}

		fmt.Fprintf(
			writer,
			"%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			sub.ID,
			sub.ChatID,
			sub.ChainID,
			sub.TokenAddress,
			sanitizeInline(symbol),
			strconv.FormatFloat(sub.ThresholdPct, 'f', -1, 64),
			prevPrice,
			prevAt,
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
