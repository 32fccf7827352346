package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"figurehub/internal/splitter"
	"figurehub/pkg/shardstore"
	"figurehub/pkg/utils"
)

func main() {
	var (
		source = flag.String("source", "data/products.json", "monolithic catalog JSON file to split")
		dryRun = flag.Bool("dry-run", false, "compute and print the shard plan without writing")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := shardstore.New(cfg.CatalogDir, cfg.BackupDir)
	plan, err := splitter.Split(ctx, *source, store, splitter.Options{DryRun: *dryRun})
	if err != nil {
		if plan != nil && plan.Snapshot != "" {
			log.Printf("split failed after snapshot %s; restore from it before retrying", plan.Snapshot)
		}
		log.Fatalf("split failed: %v", err)
	}

	mode := "split"
	if *dryRun {
		mode = "dry-run"
	}
	log.Printf("%s: %d records from %s into %d shards", mode, plan.TotalRecords, plan.Source, len(plan.Shards))
	for _, sh := range plan.Shards {
		log.Printf("  %s (%q): %d records", sh.Name, sh.Series, sh.Records)
	}
	if plan.Snapshot != "" {
		log.Printf("source backed up to %s", plan.Snapshot)
	}
}
