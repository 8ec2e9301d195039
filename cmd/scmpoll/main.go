package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/registry"
	"github.com/drewdunne/scmpoll/internal/scm"
	"github.com/drewdunne/scmpoll/internal/server"
	"github.com/drewdunne/scmpoll/internal/statestore"
	"github.com/drewdunne/scmpoll/internal/vcs/execgit"
	"github.com/drewdunne/scmpoll/internal/workdir"
)

var version = "0.1.0"

const pruneInterval = time.Hour

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "poll":
		runPoll(os.Args[2:])
	case "checkout":
		runCheckout(os.Args[2:])
	case "prune":
		runPrune(os.Args[2:])
	case "version":
		fmt.Printf("scmpoll v%s\n", version)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: scmpoll <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Start the plugin server")
	fmt.Println("  poll      Poll a material once and record its state")
	fmt.Println("  checkout  Check out the last reported revision of a material")
	fmt.Println("  prune     Remove working folders unused for git.retention_days")
	fmt.Println("  version   Print version information")
}

// commonFlags are shared by every command that needs the service config.
type commonFlags struct {
	configPath *string
	envFile    *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", "", "Path to config file (defaults are used when empty)"),
		envFile:    fs.String("env-file", "", "Path to .env file (optional)"),
	}
}

// materialFlags describe a material on the command line.
type materialFlags struct {
	name, url, username, password *string
	apiURL, projectName, branch   *string
	whitelist, blacklist          *string
	shallow                       *bool
}

func addMaterialFlags(fs *flag.FlagSet) materialFlags {
	return materialFlags{
		name:        fs.String("name", "", "Material name used as state key (defaults to the repository name)"),
		url:         fs.String("url", "", "Repository URL"),
		username:    fs.String("username", "", "Username"),
		password:    fs.String("password", "", "Password or token"),
		apiURL:      fs.String("api-url", "", "Provider API URL"),
		projectName: fs.String("project", "", "Provider project name"),
		branch:      fs.String("branch", "", "Default branch"),
		whitelist:   fs.String("whitelist", "", "Branch whitelist patterns"),
		blacklist:   fs.String("blacklist", "", "Branch blacklist patterns"),
		shallow:     fs.Bool("shallow", false, "Shallow clone"),
	}
}

func (m materialFlags) material() material {
	values := map[string]string{
		config.KeyURL:             *m.url,
		config.KeyUsername:        *m.username,
		config.KeyPassword:        *m.password,
		config.KeyAPIURL:          *m.apiURL,
		config.KeyProjectName:     *m.projectName,
		config.KeyDefaultBranch:   *m.branch,
		config.KeyBranchWhitelist: *m.whitelist,
		config.KeyBranchBlacklist: *m.blacklist,
		config.KeyShallowClone:    fmt.Sprint(*m.shallow),
	}
	name := *m.name
	if name == "" {
		name = config.SCMFromValues(values).RepositoryName()
	}
	return material{Name: name, Values: values}
}

func loadConfig(flags commonFlags) *config.Config {
	// Load .env file if specified or exists
	if *flags.envFile != "" {
		if err := godotenv.Load(*flags.envFile); err != nil {
			log.Printf("Warning: could not load env file %s: %v", *flags.envFile, err)
		}
	} else {
		// Try default locations
		godotenv.Load(".env")
		godotenv.Load("/etc/scmpoll/scmpoll.env")
	}

	if *flags.configPath == "" {
		return config.DefaultConfig()
	}

	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func newPlugin(cfg *config.Config, logger *logging.Logger) *scm.Plugin {
	p, err := registry.New(cfg)
	if err != nil {
		log.Fatalf("Failed to select provider: %v", err)
	}

	factory := execgit.NewFactory(
		execgit.WithTimeout(cfg.Git.CommandTimeout()),
		execgit.WithSubmodules(cfg.Git.Submodules),
		execgit.WithLogger(logger),
	)
	return scm.New(p, factory, cfg.Provider, logger)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(args)

	cfg := loadConfig(common)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	plugin := newPlugin(cfg, logger)

	if cfg.Git.RetentionDays > 0 {
		pruner := workdir.NewPruner(cfg.Git.WorkDir, cfg.Git.RetentionDays,
			workdir.WithLocker(plugin.LockFolder),
			workdir.WithLogger(logger),
		)
		scheduler := workdir.NewScheduler(pruner, pruneInterval, logger)
		scheduler.Start()
		defer scheduler.Stop()
	}

	srv := server.New(cfg, plugin, logger)
	logger.Infof("starting scmpoll for provider %s", plugin.Provider().Name())
	if err := srv.ListenAndServeWithShutdown(); err != nil {
		logger.Fatal("server error", err)
	}
}

func runPoll(args []string) {
	fs := flag.NewFlagSet("poll", flag.ExitOnError)
	common := addCommonFlags(fs)
	mat := addMaterialFlags(fs)
	noColor := fs.Bool("no-color", false, "Disable colored output")
	fs.Parse(args)

	cfg := loadConfig(common)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	plugin := newPlugin(cfg, logger)
	m := mat.material()

	store, err := statestore.Open(cfg.State.Path)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := newPrinter(os.Stdout, !*noColor)
	workDir := filepath.Join(cfg.Git.WorkDir, m.Name)
	if err := poll(ctx, plugin, store, m, workDir, out); err != nil {
		out.failure(err)
		os.Exit(1)
	}
}

func runCheckout(args []string) {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	common := addCommonFlags(fs)
	mat := addMaterialFlags(fs)
	dest := fs.String("dest", "", "Destination folder (required)")
	rev := fs.String("revision", "", "Revision to check out (defaults to the last reported one)")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	fs.Parse(args)

	if *dest == "" {
		fmt.Println("checkout: -dest is required")
		os.Exit(1)
	}

	cfg := loadConfig(common)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	plugin := newPlugin(cfg, logger)

	store, err := statestore.Open(cfg.State.Path)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer store.Close()

	out := newPrinter(os.Stdout, !*noColor)
	if err := checkoutMaterial(context.Background(), plugin, store, mat.material(), *dest, *rev, out); err != nil {
		out.failure(err)
		os.Exit(1)
	}
}

func runPrune(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	common := addCommonFlags(fs)
	days := fs.Int("days", 0, "Retention in days (defaults to git.retention_days)")
	fs.Parse(args)

	cfg := loadConfig(common)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	retention := cfg.Git.RetentionDays
	if *days > 0 {
		retention = *days
	}
	if retention == 0 {
		fmt.Println("prune: no retention configured; set git.retention_days or -days")
		os.Exit(1)
	}

	removed, err := workdir.NewPruner(cfg.Git.WorkDir, retention, workdir.WithLogger(logger)).Prune()
	if err != nil {
		log.Fatalf("Failed to prune %s: %v", cfg.Git.WorkDir, err)
	}
	fmt.Printf("Removed %d working folders from %s\n", removed, cfg.Git.WorkDir)
}
