package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrygo/gridiron/ai/agents/orchestrator"
	"github.com/hrygo/gridiron/internal/version"
	"github.com/hrygo/gridiron/plugin/telegram"
	"github.com/hrygo/gridiron/server"
)

func newAskCommand() *cobra.Command {
	var (
		mode      string
		reasoning bool
		noCache   bool
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
			defer stop()

			a, err := newApp(ctx, instanceProfile, nil)
			if err != nil {
				printStartupError(err, instanceProfile)
				return err
			}
			defer a.Close()

			res, err := a.orchestrator.Ask(ctx, orchestrator.Request{
				Question:      strings.Join(args, " "),
				Mode:          orchestrator.Mode(mode),
				ShowReasoning: reasoning,
				SkipCache:     noCache,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintln(out, res.Answer)
			if reasoning {
				fmt.Fprintln(out)
				fmt.Fprint(out, res.DebugLog())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", `answer mode: "hybrid", "route", "database" or "web" (default from --routing-mode)`)
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "print the reasoning trail and stage timings")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "skip cached and similar answers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func newTelegramCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Answer questions in Telegram chats (long polling)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instanceProfile.TelegramToken == "" {
				return fmt.Errorf("GRIDIRON_TELEGRAM_TOKEN is not set")
			}
			if err := instanceProfile.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
			defer stop()

			a, err := newApp(ctx, instanceProfile, nil)
			if err != nil {
				printStartupError(err, instanceProfile)
				return err
			}
			defer a.Close()

			bot, err := telegram.New(telegram.Config{
				BotToken: instanceProfile.TelegramToken,
				Mode:     orchestrator.Mode(instanceProfile.RoutingMode),
			}, a.orchestrator)
			if err != nil {
				return err
			}
			fmt.Printf("gridiron %s answering as @%s\n", instanceProfile.Version, bot.Username())
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the API (requires GRIDIRON_JWT_SECRET)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if instanceProfile.JWTSecret == "" {
				return fmt.Errorf("GRIDIRON_JWT_SECRET is not set")
			}
			token, err := server.IssueToken([]byte(instanceProfile.JWTSecret), args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.StringFull())
		},
	}
}

