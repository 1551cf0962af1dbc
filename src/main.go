package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"idbstore/src/helpers"
	"idbstore/src/idb"
	"idbstore/src/settings"
)

// printUsage prints helpful usage information
func printUsage() {
	log.Println("idbstore - an IndexedDB-style object store over SQLite")
	log.Println("\nUsage:")
	log.Println("  idbstore [options]")
	log.Println("\nOptions:")
	flag.PrintDefaults()

	log.Println("\nExamples:")
	log.Println("  idbstore --datadir=/data --dbfile=media.db")
	log.Println("  idbstore --verbose")
}

func main() {
	args := &settings.Arguments{}

	// Define command line flags that map to the Arguments struct
	flag.StringVar(&args.DataDir, "datadir", "./datafiles", "Directory to store data files")
	flag.StringVar(&args.DBFile, "dbfile", "idbstore.db", "Database file name inside the data directory (empty for in-memory)")
	flag.BoolVar(&args.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&args.Debug, "debug", false, "Enable debug mode")

	flag.Parse()

	var logger *zap.Logger
	var err error

	if args.Debug {
		// Development configuration with more verbose output
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stdout"}
		logger, err = z.Build()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	zap.ReplaceGlobals(logger)

	dbPath, err := helpers.ResolveDBPath(args.DataDir, args.DBFile)
	if err != nil {
		sugar.Fatalf("Failed to resolve database path: %v", err)
	}

	if args.Verbose {
		sugar.Infof("idbstore starting with options:")
		sugar.Infof("  Data Directory: %s", args.DataDir)
		sugar.Infof("  Database File: %s", args.DBFile)
		sugar.Infof("  Resolved Path: %s", dbPath)
	}

	worker := idb.NewWorker(sugar)
	worker.Start()
	defer func() {
		if err := worker.Stop(); err != nil {
			sugar.Errorf("Error stopping database worker: %v", err)
		}
	}()

	if err := run(idb.NewFactory(worker, dbPath, sugar), sugar); err != nil {
		sugar.Fatalf("Demo failed: %v", err)
	}
}

// run exercises the store end to end: open a database, build a store on
// first use, write a few media segments, and read them back in key order.
func run(factory *idb.Factory, sugar *zap.SugaredLogger) error {
	version := int64(1)
	openReq := factory.Open("offline-media", &version,
		func(event idb.VersionChangeEvent, db *idb.Database, txn *idb.IDBTransaction) error {
			sugar.Infof("Upgrading %q from version %d", db.Name, event.OldVersion)
			_, err := db.CreateObjectStore("segments", &idb.ObjectStoreParameters{AutoIncrement: true})
			return err
		})
	result, err := openReq.Await()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db := result.(*idb.Database)
	defer db.Close()

	writeTxn, err := db.Transaction([]string{"segments"}, idb.ReadWrite)
	if err != nil {
		return err
	}
	store, err := writeTxn.ObjectStore("segments")
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		segment := map[string]interface{}{
			"uri":  fmt.Sprintf("https://example.com/seg%d.mp4", i),
			"data": []byte{byte(i), byte(i + 1)},
		}
		if _, err := store.Add(segment, nil); err != nil {
			return err
		}
	}
	if err := writeTxn.Commit(); err != nil {
		return err
	}
	if err := writeTxn.Await(); err != nil {
		return fmt.Errorf("write transaction failed: %w", err)
	}

	readTxn, err := db.Transaction([]string{"segments"}, idb.ReadOnly)
	if err != nil {
		return err
	}
	store, err = readTxn.ObjectStore("segments")
	if err != nil {
		return err
	}
	cursorReq, err := store.OpenCursor(idb.CursorNext)
	if err != nil {
		return err
	}
	cursorReq.OnSuccess = func(r *idb.Request) error {
		result, err := r.Result()
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		cursor := result.(*idb.Cursor)
		segment := cursor.Value.(map[string]interface{})
		sugar.Infof("Segment %d: %s", *cursor.Key, segment["uri"])
		return cursor.Continue()
	}
	if err := readTxn.Commit(); err != nil {
		return err
	}
	return readTxn.Await()
}
