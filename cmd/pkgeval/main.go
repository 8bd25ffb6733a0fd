package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	gocron "github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/modrac/pkgeval/internal/log"
	"github.com/modrac/pkgeval/internal/model"
)

var (
	userConfigPath string // default config dir for pkgeval on this OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string
	flagVerbose        bool

	flagPackages []string
	flagRuntime  string
	flagWorkers  int
	flagOutput   string
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "pkgeval")
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is pkgeval.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initPkgeval

	runCmd.Flags().StringSliceVar(&flagPackages, "package", nil, "evaluate only the named packages")
	runCmd.Flags().StringVar(&flagRuntime, "runtime", "", "runtime version to evaluate against")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "number of concurrent workers")
	runCmd.Flags().StringVar(&flagOutput, "output", "", "directory receiving the JSON report")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("pkgeval failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "pkgeval",
	Short:        "Evaluates package test suites against a runtime version",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run evaluates the registered packages and reports the tally",
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of pkgeval itself",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("pkgeval: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:  %s\n", configPath)
		}
		fmt.Printf("pkgeval: %s\n", info.Main.Version)
		fmt.Printf("go:      %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:  %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:    %s\n", s.Value)
			}
		}
	},
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = log.WithAttrs(ctx, slog.Group("pkgeval",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	// run flags win over the config file
	if flagRuntime != "" {
		config.Version = flagRuntime
	}
	if flagWorkers > 0 {
		config.Workers = flagWorkers
	}
	if flagOutput != "" {
		config.Output = flagOutput
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ev, err := newEvaluation(ctx, config, flagPackages)
	if err != nil {
		return err
	}

	if config.Schedule.Cron == "" && config.Schedule.Every == "" {
		return ev.do(ctx)
	}
	return runScheduled(ctx, ev)
}

// runScheduled re-runs the evaluation on the configured schedule until
// interrupted. Evaluation errors are logged, not fatal; the next tick gets
// a fresh chance.
func runScheduled(ctx context.Context, ev *evaluation) error {
	var def gocron.JobDefinition
	switch {
	case config.Schedule.Cron != "":
		def = gocron.CronJob(config.Schedule.Cron, false)
	default:
		every, err := model.ParseEvery(config.Schedule.Every)
		if err != nil {
			return fmt.Errorf("parsing schedule.every: %w", err)
		}
		def = gocron.DurationJob(every)
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("initializing scheduler: %w", err)
	}
	_, err = s.NewJob(def, gocron.NewTask(func() {
		if err := ev.do(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			slog.ErrorContext(ctx, "scheduled evaluation failed", "error", err)
		}
	}))
	if err != nil {
		return fmt.Errorf("initializing scheduled job: %w", err)
	}

	s.Start()
	slog.InfoContext(ctx, "timer mode", "cron", config.Schedule.Cron, "every", config.Schedule.Every)
	<-ctx.Done()
	return s.Shutdown()
}

func initPkgeval(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetConfigName("pkgeval")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("pkgeval")
	v.AutomaticEnv()

	def := model.DefaultConfig()
	v.SetDefault("depot", def.Depot)
	v.SetDefault("cache", def.Cache)
	v.SetDefault("logs", def.Logs)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("sandbox", def.Sandbox)

	switch {
	case os.Getenv("PKGEVALCONFIG") != "":
		v.SetConfigFile(os.Getenv("PKGEVALCONFIG"))
	case flagConfigFilePath != "":
		v.SetConfigFile(flagConfigFilePath)
	default:
		v.AddConfigPath(".")
		v.AddConfigPath(userConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
		// first run: store the defaults where the user can find them
		if werr := writeDefaultConfig(def); werr != nil {
			return werr
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		configPath = used
	}

	if err := v.Unmarshal(&config); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	// --verbose has precedence over the config file
	if flagVerbose {
		config.Verbose = true
	}
	slog.SetDefault(log.New(config.Verbose))

	slog.Debug("pkgeval run", "configPath", configPath)
	slog.Debug("pkgeval run", "config", config)
	return nil
}

func writeDefaultConfig(def model.Config) error {
	path := filepath.Join(userConfigPath, "pkgeval.yaml")
	if err := os.MkdirAll(userConfigPath, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", userConfigPath, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(def); err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	configPath = path
	return nil
}
