package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"topolab/internal/collector"
	"topolab/internal/collector/fortigate"
	"topolab/internal/config"
	"topolab/internal/observability"
	"topolab/internal/preflight"
)

// app carries what every subcommand needs once the root command has run
type app struct {
	out        io.Writer
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
}

// collectorFlags select and configure the inventory source
type collectorFlags struct {
	fixture   string
	host      string
	port      int
	username  string
	password  string
	noVerify  bool
	skipProbe bool
}

func (f *collectorFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fixture, "fixture", "", "read inventories from a recorded YAML/JSON file instead of a FortiGate")
	cmd.Flags().StringVar(&f.host, "host", "", "FortiGate IP address or hostname")
	cmd.Flags().IntVar(&f.port, "port", 0, "FortiGate HTTPS port")
	cmd.Flags().StringVar(&f.username, "username", "", "FortiGate username")
	cmd.Flags().StringVar(&f.password, "password", "", "FortiGate password")
	cmd.Flags().BoolVar(&f.noVerify, "no-ssl-verify", false, "disable TLS certificate verification")
	cmd.Flags().BoolVar(&f.skipProbe, "skip-preflight", false, "skip the nmap reachability probe")
}

// apply copies explicitly set flags over the loaded configuration
func (f *collectorFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.FortiGate.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.FortiGate.Port = f.port
	}
	if cmd.Flags().Changed("username") {
		cfg.FortiGate.Username = f.username
	}
	if cmd.Flags().Changed("password") {
		cfg.FortiGate.Password = f.password
	}
	if f.noVerify {
		cfg.FortiGate.VerifySSL = false
	}
	if f.skipProbe {
		cfg.Preflight.Enabled = false
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	var (
		cfgFile  string
		logLevel string
	)

	root := &cobra.Command{
		Use:           "topolab",
		Short:         "Build FortiGate network topologies for 3D visualization",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cfgFile); err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				a.cfg.Logging.Level = logLevel
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger, err := observability.NewLogger(a.cfg.Logging, nil)
			if err != nil {
				return err
			}
			a.logger = logger
			if a.configPath != "" {
				a.logger.Debug("Loaded configuration", zap.String("path", a.configPath))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: search $TOPOLAB_CONFIG, ./topolab.yaml, XDG paths)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.SetOut(out)

	root.AddCommand(
		newBuildCmd(a),
		newServeCmd(a),
		newProbeCmd(a),
		newConfigCmd(a),
	)
	return root
}

// load reads configuration from cfgFile or the search path and applies
// environment overrides
func (a *app) load(cfgFile string) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if cfgFile != "" {
		cfg, path, err = config.LoadFromPath(cfgFile)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	a.cfg = cfg
	a.configPath = path
	return nil
}

// openCollector returns the collector selected by flags together with a
// cleanup function and the firewall address recorded on the root device
func (a *app) openCollector(ctx context.Context, flags collectorFlags) (collector.Collector, func(), string, error) {
	if flags.fixture != "" {
		fix, err := collector.LoadFixture(flags.fixture)
		if err != nil {
			return nil, nil, "", err
		}
		a.logger.Info("Using recorded inventory", zap.String("fixture", flags.fixture))
		return fix, func() {}, "", nil
	}

	fg := a.cfg.FortiGate
	if err := a.cfg.ValidateCollector(); err != nil {
		return nil, nil, "", err
	}

	if a.cfg.Preflight.Enabled {
		a.preflight(ctx)
	}

	session, err := fortigate.NewSession(fortigate.Config{
		Host:      fg.Host,
		Port:      fg.Port,
		Username:  fg.Username,
		Password:  fg.Password,
		APIToken:  fg.APIToken,
		VerifySSL: fg.VerifySSL,
		Timeout:   fg.Timeout.Duration(),
	}, a.logger.Named("fortigate"))
	if err != nil {
		return nil, nil, "", err
	}
	client := fortigate.NewClient(session, a.logger.Named("fortigate"))
	if err := client.TestConnection(ctx); err != nil {
		return nil, nil, "", fmt.Errorf("connect to FortiGate: %w", err)
	}

	cleanup := func() {
		// The build context may already be cancelled on shutdown.
		if err := client.Close(context.Background()); err != nil {
			a.logger.Warn("Logout failed", zap.Error(err))
		}
	}
	return client, cleanup, client.Host(), nil
}

// preflight logs the reachability of the management API. It never fails the
// caller.
func (a *app) preflight(ctx context.Context) {
	prober := a.newProber()
	result, err := prober.Probe(ctx, a.cfg.FortiGate.Host, a.cfg.FortiGate.Port)
	if err != nil {
		a.logger.Warn("Preflight probe skipped", zap.Error(err))
		return
	}
	if !result.Reachable() {
		a.logger.Warn("FortiGate API port does not look reachable",
			zap.String("target", result.Target),
			zap.Int("port", result.APIPort),
			zap.Strings("warnings", result.Warnings))
	}
}

func (a *app) newProber() *preflight.Prober {
	return preflight.NewProber(
		preflight.WithTimeout(a.cfg.Preflight.Timeout.Duration()),
		preflight.WithExtraPorts(a.cfg.Preflight.ExtraPorts),
		preflight.WithLogger(a.logger.Named("preflight")),
	)
}
