package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "0.3.1"

// Config holds the command-line and environment configuration.
type Config struct {
	serverURL string
	stateDir  string
	logLevel  string
}

func (c *Config) validate() error {
	if c.serverURL == "" {
		return fmt.Errorf("a server URL is required (--server or QUIZWIRE_SERVER)")
	}
	if !strings.HasPrefix(c.serverURL, "ws://") && !strings.HasPrefix(c.serverURL, "wss://") {
		return fmt.Errorf("server URL must use ws:// or wss://: %s", c.serverURL)
	}
	return nil
}

// sessionPath is where the resumable session state lives.
func (c *Config) sessionPath() string {
	return filepath.Join(c.stateDir, "session.yaml")
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "quizwire")
	}
	return ".quizwire"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("QUIZWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "quizwire",
		Short:         "Terminal client for quizwire trivia rooms.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.serverURL, "server", "s", "ws://localhost:3000/ws", "websocket URL of the quiz server (env: QUIZWIRE_SERVER)")
	fs.StringVar(&cfg.stateDir, "state-dir", defaultStateDir(), "directory for the resumable session state (env: QUIZWIRE_STATE_DIR)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error (env: QUIZWIRE_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, v.GetString(f.Name))
		}
	})

	return cmd
}
