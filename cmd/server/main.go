package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"terrafront.io/internal/persistence/indexdb"
	"terrafront.io/internal/server"
	"terrafront.io/internal/sim/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		workerID   = flag.Int("worker", 0, "this worker's shard index")
		numWorkers = flag.Int("workers", 1, "total number of workers in the deployment")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: built-in values)")
		adminToken = flag.String("admin_token", "", "admin token (or set TF_ADMIN_TOKEN)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite game index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, fmt.Sprintf("[w%d] ", *workerID), log.LstdFlags|log.Lmicroseconds)

	if *workerID < 0 || *numWorkers < 1 || *workerID >= *numWorkers {
		logger.Fatalf("worker %d out of range for %d workers", *workerID, *numWorkers)
	}

	token := strings.TrimSpace(*adminToken)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("TF_ADMIN_TOKEN"))
	}
	if token == "" {
		logger.Printf("no admin token configured; public game scheduling and kicks are disabled")
	}

	tn := tuning.Defaults()
	if tp := strings.TrimSpace(*tuningPath); tp != "" {
		var err error
		tn, err = tuning.Load(tp)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	workerDir := filepath.Join(*dataDir, fmt.Sprintf("w%d", *workerID))
	_ = os.MkdirAll(workerDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		var err error
		idx, err = indexdb.OpenSQLite(filepath.Join(workerDir, "index", "games.sqlite"))
		if err != nil {
			logger.Fatalf("open game index: %v", err)
		}
		defer idx.Close()
	}

	mgr := server.NewGameManager(tn, workerDir, idx, logger)
	wsSrv := server.NewWSServer(mgr, *workerID, *numWorkers, logger)
	httpSrv := server.NewHTTPServer(mgr, wsSrv, *workerID, *numWorkers, token, logger)

	ctx, cancel := signalContext()
	defer cancel()

	go httpSrv.PruneLoop(ctx.Done())

	mux := httpSrv.Mux()
	if os.Getenv("TF_ENABLE_PPROF_HTTP") == "true" {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("worker %d/%d listening on %s", *workerID, *numWorkers, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
