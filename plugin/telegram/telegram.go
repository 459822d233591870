// Package telegram answers NFL questions in Telegram chats.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/gridiron/ai/agents/orchestrator"
	"github.com/hrygo/gridiron/ai/cache"
)

const (
	DefaultParseMode = "Markdown"
	// MaxMessageLength is Telegram's limit for one text message.
	MaxMessageLength = 4096
)

const helpText = `I answer questions about NFL statistics, teams, players and games.

Ask anything, e.g. _Which team had the most rushing yards in 2023?_

/why  how the last answer was chosen
/help this message`

// Asker answers questions. *orchestrator.Orchestrator satisfies it.
type Asker interface {
	Ask(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// Config holds configuration for the Telegram bot.
type Config struct {
	BotToken    string
	APIEndpoint string // default tgbotapi.APIEndpoint
	Mode        orchestrator.Mode
	PollTimeout int           // long-poll seconds (default 30)
	AskTimeout  time.Duration // per question (default 3m)
	Workers     int           // questions answered concurrently (default 4)
	RecentChats int           // chats whose last answer is kept for /why (default 1000)
	RecentTTL   time.Duration // how long /why can explain an answer (default 1h)
}

// Bot long-polls updates and answers each text message.
type Bot struct {
	api   *tgbotapi.BotAPI
	asker Asker
	cfg   Config

	last *cache.LRUCache[int64, *orchestrator.Result] // chat ID -> last answer, for /why
}

// New connects to the Bot API (getMe) and returns the bot.
func New(cfg Config, asker Asker) (*Bot, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}
	if cfg.AskTimeout <= 0 {
		cfg.AskTimeout = 3 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RecentChats <= 0 {
		cfg.RecentChats = 1000
	}
	if cfg.RecentTTL <= 0 {
		cfg.RecentTTL = time.Hour
	}
	client := &http.Client{Timeout: time.Duration(cfg.PollTimeout+10) * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, cfg.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &Bot{api: api, asker: asker, cfg: cfg, last: cache.NewLRUCache[int64, *orchestrator.Result](cfg.RecentChats, cfg.RecentTTL)}, nil
}

// Username is the bot's Telegram handle.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run polls until ctx is done, then waits for in-flight answers.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)
	slog.Info("telegram: polling for updates", "bot", b.Username())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			_ = g.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				b.HandleUpdate(gctx, update)
				return nil
			})
		}
	}
}

// HandleUpdate answers one update. Non-text updates are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(chatID, helpText, DefaultParseMode)
		case "why":
			b.reply(chatID, b.why(chatID), "")
		default:
			b.reply(chatID, "Unknown command. Try /help.", "")
		}
		return
	}

	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		slog.Debug("telegram: failed to send typing action", "chat_id", chatID, "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.AskTimeout)
	defer cancel()
	res, err := b.asker.Ask(ctx, orchestrator.Request{
		Question:      msg.Text,
		Mode:          b.cfg.Mode,
		ShowReasoning: true,
	})
	if err != nil {
		slog.Warn("telegram: ask failed", "chat_id", chatID, "error", err)
		b.reply(chatID, "Sorry, something went wrong while answering. Please try again.", "")
		return
	}

	b.last.Set(chatID, res, 0)
	b.reply(chatID, FormatAnswer(res), DefaultParseMode)
}

func (b *Bot) why(chatID int64) string {
	res, ok := b.last.Get(chatID)
	if !ok || res == nil {
		return "Ask me a question first."
	}
	return res.DebugLog()
}

// reply sends text in chunks. A Markdown message Telegram cannot parse is resent as plain text.
func (b *Bot) reply(chatID int64, text, parseMode string) {
	for _, chunk := range SplitMessage(text, MaxMessageLength) {
		m := tgbotapi.NewMessage(chatID, chunk)
		m.ParseMode = parseMode
		if _, err := b.api.Send(m); err != nil {
			if parseMode == "" {
				slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
				return
			}
			slog.Debug("telegram: markdown rejected, sending plain text", "chat_id", chatID, "error", err)
			m.ParseMode = ""
			if _, err := b.api.Send(m); err != nil {
				slog.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
				return
			}
		}
	}
}

// FormatAnswer renders a result for a chat: the answer plus a short source line.
func FormatAnswer(res *orchestrator.Result) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(res.Answer))
	switch {
	case res.Filtered || res.Err != nil:
		return b.String()
	case res.Source != "":
		fmt.Fprintf(&b, "\n\n_source: %s", res.Source)
		if res.Cached {
			b.WriteString(", cached")
		}
		b.WriteString("_")
	}
	if len(res.Sources) > 0 {
		b.WriteString("\n")
		for _, u := range res.Sources[:min(3, len(res.Sources))] {
			b.WriteString("\n" + u)
		}
	}
	return b.String()
}

// SplitMessage cuts text into pieces of at most limit bytes, preferring line breaks.
func SplitMessage(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, text[:cut])
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" || len(chunks) == 0 {
		chunks = append(chunks, text)
	}
	return chunks
}
