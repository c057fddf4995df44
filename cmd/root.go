/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/go-rs232"
	"github.com/allbin/go-rs232/internal/config"
	"github.com/allbin/go-rs232/internal/logging"
	"github.com/allbin/go-rs232/transport"
)

var (
	cfgFile string
	cfg     = config.Default()
	logger  = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rs232",
	Short: "Talk to serial devices through a single-threaded call queue",
	Long: `rs232 opens serial devices and drives every port operation from one
dedicated worker, so any number of goroutines can share a port safely.

The reserved port name MOCK uses an in-memory transport and needs no hardware.

Configuration is read from rs232.yaml (., ./configs, ~/.rs232), overridden by
RS232_* environment variables and then by flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded

		l, err := logging.Setup(cfg.Log)
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is rs232.yaml)")
	rootCmd.PersistentFlags().String("driver", "bugst", "Serial driver: "+fmt.Sprint(transport.Drivers()))
	rootCmd.PersistentFlags().Int("queue-size", 64, "Calls that may wait for the worker")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: console or json")
}

// deviceOptions translates the loaded configuration into device options
func deviceOptions(direct bool) []rs232.Option {
	opts := []rs232.Option{
		rs232.WithBaudRate(cfg.BaudRate),
		rs232.WithDriver(cfg.Driver),
		rs232.WithQueueSize(cfg.QueueSize),
		rs232.WithLogger(logger),
	}
	if direct || !cfg.Affinity {
		opts = append(opts, rs232.WithDirect())
	}
	return opts
}

// openDevice creates a device for port. For the null port it also returns the
// in-memory transport so callers can inspect what was written.
func openDevice(port string, direct bool) (*rs232.Device, *transport.Null, error) {
	opts := deviceOptions(direct)

	var null *transport.Null
	if transport.IsNull(port) {
		null = transport.NewNull()
		opts = append(opts, rs232.WithTransport(null))
	}

	dev, err := rs232.New(port, opts...)
	if err != nil {
		return nil, nil, err
	}
	return dev, null, nil
}

// portArg returns the port from args or the configured default
func portArg(args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	if cfg.Port != "" {
		return cfg.Port, nil
	}
	return "", fmt.Errorf("no port given and none configured")
}
