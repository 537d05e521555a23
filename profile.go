package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"

	"trench_war_server/storage"
)

func printProfile(ctx context.Context, w io.Writer, dbPath, token string) error {
	if dbPath == "" {
		return errors.New("no profile database configured (set --db or TRENCHWAR_DB)")
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return errors.Wrap(err, "open profile store failed")
	}
	defer store.Close()

	p, err := store.LoadProfile(ctx, token)
	if errors.Is(err, storage.ErrProfileNotFound) {
		fmt.Fprintf(w, "no profile for %s\n", token)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "side:      %s\nkills:     %d\ndeaths:    %d\nmatches:   %d\nlast seen: %s\n",
		p.Side, p.Kills, p.Deaths, p.Matches, p.LastSeen.Format(time.RFC3339))
	return nil
}
