package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent price snapshots.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show snapshots")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snapshots, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Fetched (UTC)\tName\tPrice\tSymbol\tUpdated (UTC)")

	for _, snapshot := range snapshots {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			snapshot.FetchedAt.UTC().Format(time.RFC3339),
			snapshot.Name,
			formatDecimal(snapshot.Price, 2),
			snapshot.Symbol,
			snapshot.UpdatedAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()

	total, err := store.CountSnapshots(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "showing %d of %d snapshots\n", len(snapshots), total)
	return nil
}
