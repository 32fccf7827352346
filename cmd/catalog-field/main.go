// catalog-field runs bulk schema operations against the shard store. It is
// an operator tool: mutations always snapshot the store first and print the
// snapshot path so a bad run can be rolled back by hand.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"figurehub/internal/fieldops"
	"figurehub/pkg/shardstore"
	"figurehub/pkg/utils"
)

var transforms = map[string]fieldops.Transform{
	// normalize hex colors to uppercase, e.g. "#ff8800" -> "#FF8800"
	"uppercase": func(value any, _ map[string]any) any {
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
		return value
	},
	// stamp the field with the current UTC time
	"touch": func(_ any, _ map[string]any) any {
		return time.Now().UTC().Format(time.RFC3339)
	},
}

func main() {
	var (
		op        = flag.String("op", "", "operation: add | rename | remove | update | usage")
		field     = flag.String("field", "", "field name")
		to        = flag.String("to", "", "new field name (rename)")
		value     = flag.String("value", "", "default value as JSON (add); bare strings also accepted")
		transform = flag.String("transform", "", "named transform (update): uppercase | touch")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := shardstore.New(cfg.CatalogDir, cfg.BackupDir)
	engine := fieldops.New(store)

	var rep *fieldops.Report
	switch *op {
	case "add":
		rep, err = engine.AddField(ctx, *field, parseValue(*value))
	case "rename":
		rep, err = engine.RenameField(ctx, *field, *to)
	case "remove":
		rep, err = engine.RemoveField(ctx, *field)
	case "update":
		fn, ok := transforms[*transform]
		if !ok {
			log.Fatalf("unknown transform %q", *transform)
		}
		rep, err = engine.UpdateField(ctx, *field, fn)
	case "usage":
		usage, err := engine.FieldUsage(ctx)
		if err != nil {
			log.Fatalf("usage scan failed: %v", err)
		}
		printUsage(usage)
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	if rep != nil {
		log.Printf("run %s: snapshot %s", rep.RunID, rep.Snapshot)
		for _, sh := range rep.Shards {
			log.Printf("  %s: %d records, %d changed", sh.Shard, sh.Records, sh.Changed)
		}
		if len(rep.Remaining) > 0 {
			log.Printf("  NOT written: %s", strings.Join(rep.Remaining, ", "))
			log.Printf("  restore from %s to roll back the shards that were written", rep.Snapshot)
		}
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *op, err)
	}
	log.Printf("%s done: %d records changed (POST /admin/reload so the API server picks this up)", *op, rep.RecordsChanged)
}

// parseValue accepts any JSON literal; bare words become strings so
// `-value new` and `-value '"new"'` mean the same thing.
func parseValue(raw string) any {
	if raw == "" {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	return v
}

func printUsage(rep *fieldops.UsageReport) {
	fmt.Printf("%d records total\n", rep.TotalRecords)
	for _, f := range rep.Fields {
		fmt.Printf("  %-20s %6d  %5.1f%%\n", f.Field, f.Count, f.Fraction*100)
	}
	if len(rep.SkippedShards) > 0 {
		fmt.Printf("skipped malformed shards: %s\n", strings.Join(rep.SkippedShards, ", "))
	}
}
