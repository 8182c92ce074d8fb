// zonewatch - remote game server log ingestion and player statistics
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/zonewatch/zonewatch/internal/api"
	"github.com/zonewatch/zonewatch/internal/auth"
	"github.com/zonewatch/zonewatch/internal/config"
	"github.com/zonewatch/zonewatch/internal/domain"
	"github.com/zonewatch/zonewatch/internal/ingest"
	"github.com/zonewatch/zonewatch/internal/logger"
	"github.com/zonewatch/zonewatch/internal/notify"
	"github.com/zonewatch/zonewatch/internal/storage"
	"github.com/zonewatch/zonewatch/internal/transport"
)

var version = "dev"

const defaultConfigPath = "/etc/zonewatch/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "server":
		cmdServer(os.Args[2:])
	case "players":
		cmdPlayers(os.Args[2:])
	case "killfeed":
		cmdKillfeed(os.Args[2:])
	case "refresh":
		cmdRefresh(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	case "user":
		cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("zonewatch %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: zonewatch <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                               Start the ingestion scheduler and API")
	fmt.Println("  server list                         Show registered game servers")
	fmt.Println("  server add <name> --tenant T --host H [flags]")
	fmt.Println("                                      Register a game server")
	fmt.Println("  server remove <id>                  Remove a game server")
	fmt.Println("  players --tenant T [--top N]        Show a tenant's top players")
	fmt.Println("  killfeed --tenant T [--recent N]    Show a tenant's recent kills")
	fmt.Println("  refresh <server-id> [--stream S]    Run one ingestion cycle now")
	fmt.Println("  export [--out kills.json.gz]        Export all kill records")
	fmt.Println("  user add [--admin] <username>       Add an API user (prompts for password)")
	fmt.Println("  user remove <username>              Remove an API user")
	fmt.Println("  user list                           List API users")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/zonewatch/config.yml)")
}

// loadConfig resolves and loads the configuration file.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the sqlite store or exits.
func openStore(cfg *config.Config) *storage.Store {
	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return store
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := logger.New(level)
	log.Info().Str("version", version).Msg("zonewatch starting")

	store := openStore(cfg)
	defer store.Close()

	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("no JWT secret configured, auth tokens will use an empty secret")
	}

	files := transport.NewClient(cfg.Transport.DialTimeout, log.With().Str("component", "transport").Logger())
	agg := ingest.NewAggregator(store, log.With().Str("component", "aggregator").Logger())

	sinks := notify.Fanout{}
	if cfg.Notify.NatsURL != "" {
		ns, err := notify.NewNATSSink(cfg.Notify.NatsURL, log.With().Str("component", "nats").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("connecting notification sink")
		}
		defer ns.Close()
		sinks = append(sinks, ns)
	} else {
		sinks = append(sinks, notify.NewLogSink(log.With().Str("component", "notify").Logger()))
	}

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)

	// Build the runner with a placeholder sink slot for the websocket hub,
	// which only exists once the router does.
	runner := ingest.NewRunner(files, store, store, agg, &sinks,
		log.With().Str("component", "ingest").Logger())

	router := api.NewRouter(store, runner, store, authService, log.With().Str("component", "api").Logger())
	router.StartWebSocketHub()
	sinks = append(sinks, router.Hub())

	sched, err := ingest.NewScheduler(store, runner,
		cfg.Ingest.LogInterval, cfg.Ingest.KillFeedInterval, cfg.Ingest.MaxConcurrent,
		log.With().Str("component", "scheduler").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("creating scheduler")
	}
	sched.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown")
	}
}

func cmdServer(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch server <list|add|remove> [options]")
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		cmdServerList(args[1:])
	case "add":
		cmdServerAdd(args[1:])
	case "remove":
		cmdServerRemove(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown server command: %s\n", args[0])
		os.Exit(1)
	}
}

func cmdServerList(args []string) {
	fs := flag.NewFlagSet("server list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	servers, err := store.ListServers(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing servers: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTENANT\tNAME\tHOST\tPORT\tROOT")
	for _, srv := range servers {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			srv.ID, srv.TenantID, srv.Name, srv.Host, srv.Port, srv.RootDir())
	}
	w.Flush()
}

func cmdServerAdd(args []string) {
	fs := flag.NewFlagSet("server add", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	tenant := fs.String("tenant", "", "owning tenant id")
	host := fs.String("host", "", "file-transfer host")
	port := fs.Int("port", 22, "file-transfer port")
	username := fs.String("user", "", "file-transfer username")
	instance := fs.Int("instance", 1, "hosting instance id")
	channel := fs.String("channel", "", "notification channel id")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 || *tenant == "" || *host == "" || *username == "" {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch server add <name> --tenant T --host H --user U [--port N] [--instance N] [--channel C]")
		os.Exit(1)
	}

	fmt.Print("Enter file-transfer password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	ctx := context.Background()
	if err := store.UpsertTenant(ctx, &domain.Tenant{ID: *tenant}); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering tenant: %v\n", err)
		os.Exit(1)
	}

	srv := &domain.ServerConnection{
		TenantID:   *tenant,
		Name:       remaining[0],
		Host:       *host,
		Port:       *port,
		Username:   *username,
		Password:   string(password),
		InstanceID: *instance,
		ChannelID:  *channel,
	}
	if err := store.UpsertServer(ctx, srv); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Server '%s' registered with id %d (root %s)\n", srv.Name, srv.ID, srv.RootDir())
}

func cmdServerRemove(args []string) {
	fs := flag.NewFlagSet("server remove", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch server remove <id>")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(remaining[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server id: %s\n", remaining[0])
		os.Exit(1)
	}

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	if err := store.DeleteServer(context.Background(), id); err != nil {
		fmt.Fprintf(os.Stderr, "Error removing server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Server %d removed\n", id)
}

func cmdPlayers(args []string) {
	fs := flag.NewFlagSet("players", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	tenant := fs.String("tenant", "", "tenant id")
	top := fs.Int("top", 20, "number of players to show")
	fs.Parse(args)

	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch players --tenant T [--top N]")
		os.Exit(1)
	}

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	players, err := store.TopPlayers(context.Background(), *tenant, *top)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing players: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKILLS\tDEATHS\tK/D\tWEAPON\tTOP VICTIM\tNEMESIS")
	for _, p := range players {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%s\t%s\t%s\n",
			p.Name, p.Kills, p.Deaths, p.KDRatio(),
			p.FavoriteWeapon, p.TopVictim, p.TopNemesis)
	}
	w.Flush()
}

func cmdKillfeed(args []string) {
	fs := flag.NewFlagSet("killfeed", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	tenant := fs.String("tenant", "", "tenant id")
	recent := fs.Int("recent", 20, "number of kills to show")
	fs.Parse(args)

	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch killfeed --tenant T [--recent N]")
		os.Exit(1)
	}

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	kills, err := store.RecentKills(context.Background(), *tenant, *recent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing kills: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKILLER\tVICTIM\tWEAPON\tDIST")
	for _, k := range kills {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dm\n",
			k.Timestamp.Format(time.DateTime), k.Killer, k.Victim, k.Weapon, k.DistanceMeters)
	}
	w.Flush()
}

func cmdRefresh(args []string) {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	stream := fs.String("stream", string(domain.StreamLog), "stream to ingest (log or killfeed)")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch refresh <server-id> [--stream log|killfeed]")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(remaining[0], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server id: %s\n", remaining[0])
		os.Exit(1)
	}
	streamKind, err := domain.ParseStream(*stream)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid stream: %s (must be log or killfeed)\n", *stream)
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	store := openStore(cfg)
	defer store.Close()

	log := logger.New(zerolog.InfoLevel)
	ctx := context.Background()

	srv, err := store.GetServerByID(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading server: %v\n", err)
		os.Exit(1)
	}

	files := transport.NewClient(cfg.Transport.DialTimeout, log)
	agg := ingest.NewAggregator(store, log)
	runner := ingest.NewRunner(files, store, store, agg, notify.NewLogSink(log), log)

	n, err := runner.RunCycle(ctx, srv, streamKind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cycle failed after %d events: %v\n", n, err)
		os.Exit(1)
	}
	fmt.Printf("Processed %d events\n", n)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	out := fs.String("out", "kills.json.gz", "output file")
	fs.Parse(args)

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)

	count := 0
	err = store.AllKillRecords(context.Background(), func(rec domain.KillRecord) error {
		count++
		return enc.Encode(rec)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		os.Exit(1)
	}
	if err := gz.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error finalizing %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d kill records to %s\n", count, *out)
}

func cmdUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: zonewatch user <add|remove|list> [options]")
		os.Exit(1)
	}

	fs := flag.NewFlagSet("user", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	isAdmin := fs.Bool("admin", false, "create as admin user")
	fs.Parse(args[1:])

	store := openStore(loadConfig(*configPath))
	defer store.Close()

	ctx := context.Background()
	var err error
	switch args[0] {
	case "add":
		err = cmdUserAdd(ctx, store, fs.Args(), *isAdmin)
	case "remove":
		err = cmdUserRemove(ctx, store, fs.Args())
	case "list":
		err = cmdUserList(ctx, store)
	default:
		err = fmt.Errorf("unknown user command: %s", args[0])
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdUserAdd(ctx context.Context, store *storage.Store, args []string, isAdmin bool) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: zonewatch user add [--admin] <username>")
	}
	username := args[0]

	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.CreateUser(ctx, username, hash, isAdmin); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	roleStr := "user"
	if isAdmin {
		roleStr = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, roleStr)
	return nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: zonewatch user remove <username>")
	}
	if err := store.DeleteUser(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	fmt.Printf("User '%s' removed\n", args[0])
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCREATED")
	for _, u := range users {
		role := "user"
		if u.IsAdmin {
			role = "admin"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, role, u.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}
