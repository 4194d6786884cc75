// backupctl runs snapshot-engine maintenance operations without the HTTP
// server: create and restore backups, validate and list archives, and apply
// the retention policy. Intended for cron jobs and operator use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/advisorhub/backoffice/internal/backup"
	"github.com/advisorhub/backoffice/internal/config"
	"github.com/advisorhub/backoffice/internal/database"
	"github.com/advisorhub/backoffice/internal/store"
	"github.com/advisorhub/backoffice/pkg/logger"
)

func main() {
	var (
		mode        = flag.String("mode", "full", "operation: full | partial | incremental | restore | validate | list | cleanup")
		collections = flag.String("collections", "", "comma-separated collections for a partial backup")
		archive     = flag.String("archive", "", "archive path for restore/validate, or the previous archive for incremental")
		retention   = flag.Int("retention", 0, "retention days for cleanup (0 = use configured default)")
		memory      = flag.Bool("memory", false, "use an empty in-memory store (dry runs)")
	)
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var st store.Store
	if *memory {
		st = store.NewMemoryStore()
	} else {
		if cfg.MongoDB.URI == "" {
			logger.Fatalf("MONGODB_URI is required (or pass -memory for a dry run)")
		}
		client, err := database.ConnectMongo(ctx, cfg.MongoDB)
		if err != nil {
			logger.Fatalf("mongo: %v", err)
		}
		defer client.Disconnect(context.Background())
		st = store.NewMongoStore(client, cfg.MongoDB.Database)
	}

	hostname, _ := os.Hostname()
	engine := backup.NewEngine(st, cfg.Backup.Dir, hostname)

	switch *mode {
	case "full":
		data, err := engine.CreateSnapshot(ctx, backup.FullSelection())
		if err != nil {
			logger.Fatalf("create snapshot: %v", err)
		}
		path, err := engine.WriteArchive(data, backup.TypeFull)
		if err != nil {
			logger.Fatalf("write archive: %v", err)
		}
		fmt.Println(path)

	case "partial":
		names := strings.Split(*collections, ",")
		cols := make([]store.Collection, 0, len(names))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				cols = append(cols, store.Collection(n))
			}
		}
		data, err := engine.CreateSnapshot(ctx, backup.PartialSelection(cols...))
		if err != nil {
			logger.Fatalf("create snapshot: %v", err)
		}
		path, err := engine.WriteArchive(data, backup.TypePartial)
		if err != nil {
			logger.Fatalf("write archive: %v", err)
		}
		fmt.Println(path)

	case "incremental":
		path, err := engine.PerformIncrementalBackup(ctx, *archive)
		if err != nil {
			logger.Fatalf("incremental backup: %v", err)
		}
		fmt.Println(path)

	case "restore":
		if *archive == "" {
			logger.Fatalf("-archive is required for restore")
		}
		if !engine.ValidateArchive(*archive) {
			logger.Fatalf("%s is not a valid full backup archive", *archive)
		}
		data, err := engine.ReadArchivePayload(*archive)
		if err != nil {
			logger.Fatalf("read archive: %v", err)
		}
		if err := engine.RestoreSnapshot(ctx, data); err != nil {
			logger.Fatalf("restore: %v", err)
		}
		fmt.Println("restored", *archive)

	case "validate":
		if *archive == "" {
			logger.Fatalf("-archive is required for validate")
		}
		if engine.ValidateArchive(*archive) {
			fmt.Println("valid")
		} else {
			fmt.Println("invalid")
			os.Exit(1)
		}

	case "list":
		names, err := engine.ListArchives()
		if err != nil {
			logger.Fatalf("list archives: %v", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}

	case "cleanup":
		days := *retention
		if days <= 0 {
			days = cfg.Backup.RetentionDays
		}
		deleted, err := engine.CleanupOldArchives(days)
		if err != nil {
			logger.Fatalf("cleanup: %v", err)
		}
		fmt.Printf("deleted %d archive(s)\n", deleted)

	default:
		logger.Fatalf("unknown mode %q", *mode)
	}
}
