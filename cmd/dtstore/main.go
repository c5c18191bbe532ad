package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/vdtran/dtstore/internal"
	"github.com/vdtran/dtstore/internal/arrays"
	"github.com/vdtran/dtstore/internal/record"
	"github.com/vdtran/dtstore/internal/store"
	"github.com/vdtran/dtstore/internal/task"
)

func main() {
	cfgPath := flag.String("config", "", "optional YAML config file")
	dataDir := flag.String("data-dir", "./data", "data directory for store files")
	prefix := flag.String("prefix", "", "table name prefix")
	modeFlag := flag.String("mode", "read-only", "open mode: create | update | read-only | upgrade")
	flag.Parse()

	dir, pfx := *dataDir, *prefix
	if *cfgPath != "" {
		cfg, err := internal.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		if cfg.Storage.Workdir != "" {
			dir = cfg.Storage.Workdir
		}
		if cfg.Storage.TablePrefix != "" {
			pfx = cfg.Storage.TablePrefix
		}
	}

	mode, err := parseMode(*modeFlag)
	if err != nil {
		log.Fatal(err)
	}

	// Ctrl-C cancels a long-running upgrade between records.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, err := store.Open(dir)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() { _ = h.Close() }()

	txID := h.StartTransaction()
	ad, err := arrays.GetAdapter(h, mode, pfx, task.FromContext(ctx))
	if err != nil {
		_ = h.EndTransaction(txID, false)
		log.Fatalf("open adapter: %v", err)
	}

	cur, err := ad.Records()
	if err != nil {
		_ = h.EndTransaction(txID, false)
		log.Fatalf("iterate: %v", err)
	}

	count := 0
	for {
		rec, ok := cur.Next()
		if !ok {
			break
		}
		if err := printRecord(rec); err != nil {
			_ = h.EndTransaction(txID, false)
			log.Fatalf("read record %d: %v", rec.ID, err)
		}
		count++
	}
	if err := cur.Err(); err != nil {
		_ = h.EndTransaction(txID, false)
		log.Fatalf("iterate: %v", err)
	}

	if err := h.EndTransaction(txID, true); err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Printf("%d records (format v%d, mode %s)\n", count, ad.Version(), mode)
}

func printRecord(rec record.Record) error {
	dt, err := rec.Int64At(arrays.DataTypeIDCol)
	if err != nil {
		return err
	}
	dim, err := rec.Int32At(arrays.DimCol)
	if err != nil {
		return err
	}
	elemLen, err := rec.Int32At(arrays.ElementLengthCol)
	if err != nil {
		return err
	}
	cat, err := rec.Int64At(arrays.CategoryIDCol)
	if err != nil {
		return err
	}
	fmt.Printf("%6d  dt=%d dim=%d elemlen=%d cat=%d\n", rec.ID, dt, dim, elemLen, cat)
	return nil
}

func parseMode(s string) (store.OpenMode, error) {
	switch s {
	case "create":
		return store.ModeCreate, nil
	case "update":
		return store.ModeUpdate, nil
	case "read-only":
		return store.ModeReadOnly, nil
	case "upgrade":
		return store.ModeUpgrade, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}
