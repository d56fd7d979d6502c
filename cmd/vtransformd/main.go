package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"vtransform/internal/store"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("vtransformd v%s\n", version)
	fmt.Println("Hotkey dispatch and visual transform daemon for video and image surfaces")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  vtransformd [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Owns one transform session per target surface. Key events from hosts")
	fmt.Println("  (HTTP, IPC or evdev keyboards) are matched against the active hotkey")
	fmt.Println("  table; the resulting transform style is pushed to websocket clients.")
	fmt.Println("  Options are persisted in a file, in redis or in memory.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Config file (.yaml or .toml); flags override its values")
	fmt.Println()
	fmt.Println("  -input-device string")
	fmt.Println("        Comma separated evdev keyboard devices; enables keyboard input")
	fmt.Println()
	fmt.Println("  -store string")
	fmt.Println("        Options store backend: file|redis|memory (default \"file\")")
	fmt.Println()
	fmt.Println("  -store-path string")
	fmt.Println("        Options file for the file backend (default \"~/.config/vtransform/options.json\")")
	fmt.Println()
	fmt.Println("  -redis-addr string")
	fmt.Println("        Redis address for the redis backend (default \"127.0.0.1:6379\")")
	fmt.Println()
	fmt.Println("  -http-listen string")
	fmt.Println("        HTTP API and websocket listen address; empty disables (default \"127.0.0.1:8765\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", DefaultConfig().IPC.SocketPath)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-format string")
	fmt.Println("        Log format: text, json, pretty (default \"text\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with defaults")
	fmt.Println("  vtransformd")
	fmt.Println()
	fmt.Println("  # Share options between daemons through redis")
	fmt.Println("  vtransformd -store redis -redis-addr 10.0.0.5:6379")
	fmt.Println()
	fmt.Println("  # Capture the numeric keypad from a USB keyboard")
	fmt.Println("  vtransformd -input-device /dev/input/by-id/usb-keyboard-event-kbd")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Keyboard input requires read access to the device (root or 'input' group)")
	fmt.Println("  - Websocket clients connect to /ws and receive state_init first")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath  = flag.String("config", "", "Config file (.yaml or .toml)")
		inputDevice = flag.String("input-device", "", "Comma separated evdev keyboard devices")
		storeKind   = flag.String("store", StoreBackendFile, "Options store backend: file|redis|memory")
		storePath   = flag.String("store-path", "", "Options file for the file backend")
		redisAddr   = flag.String("redis-addr", "", "Redis address for the redis backend")
		httpListen  = flag.String("http-listen", "", "HTTP listen address")
		ipcSocket   = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		logLevelStr = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		logFormat   = flag.String("log-format", LogFormatText, "Log format: text, json, pretty")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Only flags given on the command line override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input-device":
			ov.InputDevice = inputDevice
		case "store":
			ov.StoreBackend = storeKind
		case "store-path":
			ov.StorePath = storePath
		case "redis-addr":
			ov.RedisAddr = redisAddr
		case "http-listen":
			ov.HTTPListen = httpListen
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocket
		case "log-level":
			ov.LogLevel = logLevelStr
		case "log-format":
			ov.LogFormat = logFormat
		}
	})
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(logLevel, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("vtransformd stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

// run starts every component and blocks until ctx is canceled or one of them
// fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	st, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	events := make(chan Event, 64)
	broadcasts := make(chan StateBroadcast, 256)
	session := newSessionClient(events)

	ws := NewServer(logger, session, HubConfig{
		SendBuf:      cfg.Hub.SendBuf,
		BroadcastBuf: cfg.Hub.BroadcastBuf,
	})

	logger.Debug("configuration",
		"store", cfg.Store.Backend,
		"origin", st.Origin(),
		"http_listen", cfg.HTTP.Listen,
		"ipc_socket", cfg.IPC.SocketPath,
		"input_devices", cfg.Input.Devices,
		"log_format", cfg.Logging.Format)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runDaemon(ctx, events, st, NewDaemonState(st.Origin()), broadcasts, logger)
	})
	g.Go(func() error {
		ws.Hub().Run(ctx)
		return nil
	})
	g.Go(func() error {
		RunBroadcaster(ctx, ws.Hub(), broadcasts, logger)
		return nil
	})
	g.Go(func() error {
		return watchStore(ctx, st, events, logger)
	})
	g.Go(func() error {
		return ipcServe(ctx, cfg.IPC.SocketPath, session, logger)
	})
	if cfg.HTTP.Listen != "" {
		g.Go(func() error {
			return runHTTPServer(ctx, cfg.HTTP.Listen, newRouter(logger, session, ws), logger)
		})
	}
	if cfg.Input.Enabled {
		g.Go(func() error {
			return runInput(ctx, cfg.Input.Devices, events, logger)
		})
	}

	logger.Info("vtransformd started", "version", version, "store", cfg.Store.Backend, "http", cfg.HTTP.Listen, "ipc", cfg.IPC.SocketPath)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore builds the configured options store.
func openStore(ctx context.Context, cfg StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case StoreBackendMemory:
		return store.NewMemory(), nil
	case StoreBackendRedis:
		rc, err := cfg.Redis.ToRedisConfig()
		if err != nil {
			return nil, err
		}
		r, err := store.NewRedis(ctx, rc, logger)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		f, err := store.NewFile(ExpandPath(cfg.File.Path), cfg.File.Settle(), logger)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}
