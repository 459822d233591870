package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/gridiron/ai/metrics"
	"github.com/hrygo/gridiron/ai/observability/logging"
	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/internal/version"
	"github.com/hrygo/gridiron/server"
)

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:           "gridiron",
		Short:         `Answers NFL questions from a play-by-play statistics database and the web.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Systemd services get their environment from the unit file.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			instanceProfile = loadProfile()
			if _, err := logging.Setup(os.Stderr, instanceProfile.LogLevel, instanceProfile.LogFormat); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := instanceProfile.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			exporter := metrics.NewPrometheusExporter(metrics.Config{IncludeRuntime: true})
			a, err := newApp(ctx, instanceProfile, exporter)
			if err != nil {
				printStartupError(err, instanceProfile)
				return err
			}
			defer a.Close()
			go a.chat.Warmup(ctx)

			s, err := server.NewServer(ctx, instanceProfile, server.Deps{
				Asker:   a.orchestrator,
				History: a.store,
				Metrics: exporter,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			c := make(chan os.Signal, 1)
			// SIGTERM is what process managers (systemd, kubernetes) send to stop a service.
			signal.Notify(c, terminationSignals...)

			if err := s.Start(ctx); err != nil {
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("failed to start server: %w", err)
				}
			}

			printGreetings(instanceProfile, s.Addr())

			go func() {
				<-c
				s.Shutdown(ctx)
				cancel()
			}()

			<-ctx.Done()
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "history database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "history database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("stats-driver", "", "statistics database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("stats-dsn", "", "statistics database path or DSN")
	rootCmd.PersistentFlags().String("routing-mode", "", `default answer mode: "hybrid", "route", "database" or "web"`)
	rootCmd.PersistentFlags().String("instance-url", "", "the public url of your gridiron instance")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "stats-driver", "stats-dsn", "routing-mode", "instance-url"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("gridiron")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(newAskCommand(), newTelegramCommand(), newTokenCommand(), newVersionCommand())
}

// loadProfile merges flags (through viper) with GRIDIRON_* environment variables.
func loadProfile() *profile.Profile {
	p := &profile.Profile{
		Mode:        viper.GetString("mode"),
		Addr:        viper.GetString("addr"),
		Port:        viper.GetInt("port"),
		Data:        viper.GetString("data"),
		Driver:      viper.GetString("driver"),
		DSN:         viper.GetString("dsn"),
		StatsDriver: viper.GetString("stats-driver"),
		StatsDSN:    viper.GetString("stats-dsn"),
		RoutingMode: viper.GetString("routing-mode"),
		InstanceURL: viper.GetString("instance-url"),
		Version:     version.GetCurrentVersion(viper.GetString("mode")),
	}
	p.FromEnv()
	return p
}

func printGreetings(profile *profile.Profile, addr string) {
	fmt.Printf("gridiron %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		fmt.Fprintf(os.Stderr, "History database: %s\n", profile.DSN)
	}

	fmt.Printf("Stats database: %s (%s)\n", profile.StatsDSN, profile.StatsDriver)
	fmt.Printf("LLM: %s / %s\n", profile.LLMProvider, profile.LLMModel)
	fmt.Printf("Answer mode: %s\n", profile.RoutingMode)
	fmt.Printf("Server running on %s\n", addr)
	fmt.Printf("Ask with: curl -s -XPOST http://%s/api/v1/ask -d '{\"question\":\"Who led the NFL in rushing in 2023?\"}' -H 'Content-Type: application/json'\n", addr)
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printStartupError explains the usual causes of a failed start.
func printStartupError(err error, profile *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nStartup failed")
	fmt.Fprintln(os.Stderr, strings.Repeat("-", 40))

	errMsg := err.Error()
	switch {
	case errors.Is(err, errNoLLM):
		fmt.Fprintln(os.Stderr, "\nNo LLM API key is configured.")
		fmt.Fprintln(os.Stderr, "   Set GRIDIRON_LLM_API_KEY (or TOGETHER_API_KEY) in the environment or .env.")

	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "\nA database is not reachable.")
		if profile.Driver == "postgres" || profile.StatsDriver == "postgres" {
			fmt.Fprintln(os.Stderr, "   Check that PostgreSQL is running and the DSN host and port are right.")
		}
		if profile.RedisURL != "" {
			fmt.Fprintf(os.Stderr, "   Check that Redis is running at %s.\n", profile.RedisURL)
		}

	case strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL SSL configuration mismatch.")
		fmt.Fprintln(os.Stderr, "   Add ?sslmode=disable to your DSN.")

	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL authentication failed.")
		fmt.Fprintln(os.Stderr, "   Check your credentials in the DSN or .env file.")

	default:
		fmt.Fprintln(os.Stderr, "\nError:", errMsg)
	}

	if _, statErr := os.Stat(".env"); statErr == nil {
		fmt.Fprintln(os.Stderr, "\nFound .env file - configuration loaded from current directory.")
	} else {
		fmt.Fprintln(os.Stderr, "\nTip: create a .env file for local configuration.")
	}
	fmt.Fprintln(os.Stderr, strings.Repeat("-", 40))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("gridiron exited", "error", err)
		os.Exit(1)
	}
}
