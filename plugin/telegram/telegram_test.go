package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agent "github.com/hrygo/gridiron/ai/agents"
	"github.com/hrygo/gridiron/ai/agents/orchestrator"
)

type sentMessage struct {
	ChatID    string
	Text      string
	ParseMode string
}

// fakeTelegram serves the Bot API methods the bot uses.
type fakeTelegram struct {
	mu           sync.Mutex
	sent         []sentMessage
	actions      int
	rejectMarkup bool
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Gridiron","username":"gridiron_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendChatAction"):
		f.actions++
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if f.rejectMarkup && r.Form.Get("parse_mode") != "" {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}
		f.sent = append(f.sent, sentMessage{
			ChatID:    r.Form.Get("chat_id"),
			Text:      r.Form.Get("text"),
			ParseMode: r.Form.Get("parse_mode"),
		})
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeAsker struct {
	res  *orchestrator.Result
	err  error
	reqs []orchestrator.Request
}

func (f *fakeAsker) Ask(_ context.Context, req orchestrator.Request) (*orchestrator.Result, error) {
	f.reqs = append(f.reqs, req)
	return f.res, f.err
}

func newTestBot(t *testing.T, api *fakeTelegram, asker Asker) *Bot {
	t.Helper()
	return newTestBotWithConfig(t, api, asker, Config{Mode: orchestrator.ModeHybrid})
}

func newTestBotWithConfig(t *testing.T, api *fakeTelegram, asker Asker, cfg Config) *Bot {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	cfg.BotToken = "123:abc"
	cfg.APIEndpoint = srv.URL + "/bot%s/%s"
	b, err := New(cfg, asker)
	require.NoError(t, err)
	return b
}

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{Text: text, Chat: &tgbotapi.Chat{ID: 42, Type: "private"}}
	if strings.HasPrefix(text, "/") {
		cmd, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

var ravensResult = &orchestrator.Result{
	TraceID: "t1",
	Answer:  "The Ravens led the NFL with 3,189 rushing yards in 2023.",
	Source:  agent.SourceDatabase,
	Method:  "score",
}

func TestNew(t *testing.T) {
	b := newTestBot(t, &fakeTelegram{}, &fakeAsker{})
	assert.Equal(t, "gridiron_bot", b.Username())
}

func TestHandleUpdate_Question(t *testing.T) {
	api := &fakeTelegram{}
	asker := &fakeAsker{res: ravensResult}
	b := newTestBot(t, api, asker)

	b.HandleUpdate(context.Background(), textUpdate("Who ran for the most yards in 2023?"))

	require.Len(t, asker.reqs, 1)
	assert.Equal(t, "Who ran for the most yards in 2023?", asker.reqs[0].Question)
	assert.True(t, asker.reqs[0].ShowReasoning)
	assert.Equal(t, 1, api.actions)

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "42", sent[0].ChatID)
	assert.Equal(t, DefaultParseMode, sent[0].ParseMode)
	assert.Contains(t, sent[0].Text, "3,189 rushing yards")
	assert.Contains(t, sent[0].Text, "_source: database_")
}

func TestHandleUpdate_AskError(t *testing.T) {
	api := &fakeTelegram{}
	b := newTestBot(t, api, &fakeAsker{err: errors.New("boom")})

	b.HandleUpdate(context.Background(), textUpdate("Who won Super Bowl LVIII?"))

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "something went wrong")
}

func TestHandleUpdate_Commands(t *testing.T) {
	api := &fakeTelegram{}
	asker := &fakeAsker{res: ravensResult}
	b := newTestBot(t, api, asker)
	ctx := context.Background()

	b.HandleUpdate(ctx, textUpdate("/why"))
	b.HandleUpdate(ctx, textUpdate("/help"))
	b.HandleUpdate(ctx, textUpdate("/nope"))
	b.HandleUpdate(ctx, textUpdate("rushing leaders 2023"))
	b.HandleUpdate(ctx, textUpdate("/why"))

	sent := api.messages()
	require.Len(t, sent, 5)
	assert.Equal(t, "Ask me a question first.", sent[0].Text)
	assert.Contains(t, sent[1].Text, "NFL statistics")
	assert.Contains(t, sent[2].Text, "Unknown command")
	assert.Equal(t, ravensResult.DebugLog(), sent[4].Text)
	assert.Len(t, asker.reqs, 1)
}

func TestWhy_ForgetsOldChats(t *testing.T) {
	api := &fakeTelegram{}
	b := newTestBotWithConfig(t, api, &fakeAsker{res: ravensResult}, Config{RecentChats: 2})
	ctx := context.Background()

	for _, chatID := range []int64{1, 2, 3} {
		u := textUpdate("rushing leaders 2023")
		u.Message.Chat.ID = chatID
		b.HandleUpdate(ctx, u)
	}

	assert.Equal(t, "Ask me a question first.", b.why(1))
	assert.Equal(t, ravensResult.DebugLog(), b.why(2))
	assert.Equal(t, ravensResult.DebugLog(), b.why(3))
	assert.Equal(t, 2, b.last.Size())
}

func TestWhy_AnswersExpire(t *testing.T) {
	b := newTestBotWithConfig(t, &fakeTelegram{}, &fakeAsker{res: ravensResult}, Config{RecentTTL: time.Millisecond})

	b.HandleUpdate(context.Background(), textUpdate("rushing leaders 2023"))
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, "Ask me a question first.", b.why(42))
}

func TestHandleUpdate_IgnoresNonText(t *testing.T) {
	api := &fakeTelegram{}
	asker := &fakeAsker{res: ravensResult}
	b := newTestBot(t, api, asker)

	b.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 2})
	b.HandleUpdate(context.Background(), textUpdate("   "))

	assert.Empty(t, api.messages())
	assert.Empty(t, asker.reqs)
}

func TestReply_FallsBackToPlainText(t *testing.T) {
	api := &fakeTelegram{rejectMarkup: true}
	b := newTestBot(t, api, &fakeAsker{res: ravensResult})

	b.HandleUpdate(context.Background(), textUpdate("Who had the most sacks in 2023?"))

	sent := api.messages()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].ParseMode)
}

func TestFormatAnswer(t *testing.T) {
	tests := []struct {
		name string
		res  *orchestrator.Result
		want string
	}{
		{
			name: "database",
			res:  ravensResult,
			want: "The Ravens led the NFL with 3,189 rushing yards in 2023.\n\n_source: database_",
		},
		{
			name: "cached web with links",
			res: &orchestrator.Result{
				Answer:  "Lamar Jackson won MVP.",
				Source:  agent.SourceWeb,
				Cached:  true,
				Sources: []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example"},
			},
			want: "Lamar Jackson won MVP.\n\n_source: web, cached_\n\nhttps://a.example\nhttps://b.example\nhttps://c.example",
		},
		{
			name: "filtered",
			res:  &orchestrator.Result{Answer: orchestrator.RefusalAnswer, Filtered: true},
			want: orchestrator.RefusalAnswer,
		},
		{
			name: "failed",
			res:  &orchestrator.Result{Answer: orchestrator.DisclaimerAnswer, Source: agent.SourceWeb, Err: errors.New("x")},
			want: orchestrator.DisclaimerAnswer,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAnswer(tt.res))
		})
	}
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{""}, SplitMessage("", 10))
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"line one", "line two"}, SplitMessage("line one\nline two", 12))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, SplitMessage("abcdefghijk", 5))

	// Multi-byte runes are never split.
	for _, chunk := range SplitMessage(strings.Repeat("é", 10), 5) {
		assert.True(t, len(chunk) <= 5)
		assert.Equal(t, strings.Repeat("é", len(chunk)/2), chunk)
	}
}
