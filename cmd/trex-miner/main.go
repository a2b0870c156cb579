// trex-miner runs the time-release puzzle mining driver against a host
// blockchain reachable through the driver.Host interface.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/NexTokenTech/TREX-PoW/internal/api"
	"github.com/NexTokenTech/TREX-PoW/internal/collision"
	"github.com/NexTokenTech/TREX-PoW/internal/config"
	"github.com/NexTokenTech/TREX-PoW/internal/consts"
	"github.com/NexTokenTech/TREX-PoW/internal/driver"
	"github.com/NexTokenTech/TREX-PoW/internal/refhost"
	"github.com/NexTokenTech/TREX-PoW/internal/statusstream"
	"github.com/NexTokenTech/TREX-PoW/internal/telemetry"
	"github.com/NexTokenTech/TREX-PoW/internal/util"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	demo := flag.Bool("demo", false, "Run against the in-memory reference host instead of a real one")
	mining := flag.Bool("mining", true, "Enable the mining driver")
	author := flag.String("author", "", "Identity recorded as the miner's author")
	cpus := flag.Int("cpus", 0, "Parallel Pollard-rho worker count (0 = all available CPUs)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("trex-miner v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	cfg.Mining.Enabled = *mining
	if *author != "" {
		cfg.Mining.Author = *author
	}
	if *cpus != 0 {
		cfg.Mining.CPUs = *cpus
	}

	if err := util.InitLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	util.Infof("trex-miner v%s starting", version)

	store, err := newCollisionStore(cfg.CollisionStore)
	if err != nil {
		util.Fatalf("failed to initialize collision store: %v", err)
	}
	defer store.Close()

	var host driver.Host
	if *demo {
		util.Info("running against the in-memory reference host (-demo)")
		host = refhost.New([]byte(cfg.Mining.Author), consts.Difficulty(cfg.Difficulty.Initial), func() int64 { return time.Now().UnixMilli() })
	} else {
		util.Fatalf("no real chain client is implemented in this module; pass -demo to run against the reference host (chain.node_url=%s)", cfg.Chain.NodeURL)
		return
	}

	telemetryAgent := telemetry.NewAgent(cfg.Telemetry)
	if err := telemetryAgent.Start(); err != nil {
		util.Errorf("failed to start telemetry: %v", err)
	}

	var stream *statusstream.Server
	if cfg.StatusStream.Enabled {
		stream = statusstream.New(cfg.StatusStream.Bind)
		if err := stream.Start(); err != nil {
			util.Errorf("failed to start status stream: %v", err)
			stream = nil
		}
	}

	var sink driver.EventSink
	if stream != nil {
		sink = stream
	}

	workerCount := cfg.Mining.CPUs
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	d := driver.New(host, store, driver.Config{
		Mining: cfg.Mining.Enabled,
		Author: cfg.Mining.Author,
		CPUs:   workerCount,
	}, sink, telemetryAgent)
	d.Start()

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer = api.NewServer(cfg.API.Bind, d, telemetryAgent)
		if err := apiServer.Start(); err != nil {
			util.Errorf("failed to start status API: %v", err)
			apiServer = nil
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	util.Info("trex-miner started. Press Ctrl+C to stop.")
	<-sigChan
	util.Info("shutting down...")

	d.Stop()
	if apiServer != nil {
		apiServer.Stop()
	}
	if stream != nil {
		stream.Stop()
	}
	telemetryAgent.Stop()

	util.Info("trex-miner stopped")
}

func newCollisionStore(cfg config.CollisionStoreConfig) (collision.Store, error) {
	switch cfg.Kind {
	case "redis":
		return collision.NewRedisStore(cfg.RedisURL, cfg.Password, cfg.DB)
	default:
		return collision.NewMemStore(), nil
	}
}
