package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"board_mirror/internal/config"
	"board_mirror/internal/model"
	"board_mirror/internal/storage"
	"board_mirror/internal/syncer"
)

// --- mocks ---

type sentMsg struct {
	ChatID int64
	Text   string
}

type mockAPI struct {
	mu   sync.Mutex
	sent []sentMsg
	acks int
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch msg := c.(type) {
	case tgbotapi.MessageConfig:
		m.sent = append(m.sent, sentMsg{ChatID: msg.ChatID, Text: msg.Text})
	case tgbotapi.CallbackConfig:
		m.acks++
	}
	return tgbotapi.Message{}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

func (m *mockAPI) allMessages() []sentMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMsg(nil), m.sent...)
}

func (m *mockAPI) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type fakeController struct {
	queued  bool
	reports []syncer.Report
}

func (f *fakeController) Trigger() bool {
	if f.queued {
		return false
	}
	f.queued = true
	return true
}

func (f *fakeController) LastReports() []syncer.Report {
	return f.reports
}

type fakeCursors struct {
	cur model.SyncCursor
	err error
}

func (f *fakeCursors) Read() (model.SyncCursor, error) {
	return f.cur, f.err
}

// --- helpers ---

type testBot struct {
	*Bot
	api     *mockAPI
	store   *storage.SQLite
	sched   *fakeController
	cursors *fakeCursors
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	api := &mockAPI{}
	sched := &fakeController{}
	cursors := &fakeCursors{}
	b := &Bot{
		api:     api,
		records: store,
		cursors: cursors,
		sched:   sched,
		cfg:     &config.Config{Board: "biz", SyncInterval: time.Hour},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return &testBot{Bot: b, api: api, store: store, sched: sched, cursors: cursors}
}

func seedThread(t *testing.T, store storage.Storage, id int64, replies int) *model.ThreadRecord {
	t.Helper()
	rec := &model.ThreadRecord{
		Title:     "General",
		Text:      "opening post",
		Date:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ImageLink: "https://i.example.com/biz/1.png",
	}
	for i := range replies {
		rec.Replies = append(rec.Replies, model.Reply{
			Text: "reply",
			Date: rec.Date.Add(time.Duration(i+1) * time.Minute),
		})
	}
	if err := store.PutThread(context.Background(), id, rec); err != nil {
		t.Fatalf("seed thread: %v", err)
	}
	return rec
}

func requireContains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("reply missing %q, got:\n%s", want, got)
	}
}

// --- handler tests ---

func TestHandleStart(t *testing.T) {
	b := newTestBot(t)
	b.handleStart(100)
	requireContains(t, b.api.lastText(), "Board mirror for /biz/")
	requireContains(t, b.api.lastText(), "every 1h0m0s")
}

func TestHandleHelp(t *testing.T) {
	b := newTestBot(t)
	b.handleHelp(100)
	requireContains(t, b.api.lastText(), "/status")
	requireContains(t, b.api.lastText(), "/thread <id>")
}

func TestHandleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh mirror", func(t *testing.T) {
		b := newTestBot(t)
		b.handleStatus(ctx, 100)
		requireContains(t, b.api.lastText(), "Stored threads: 0")
		requireContains(t, b.api.lastText(), "Catalog synced: never")
		requireContains(t, b.api.lastText(), "No pass has run yet.")
	})

	t.Run("with progress", func(t *testing.T) {
		b := newTestBot(t)
		seedThread(t, b.store, 1, 0)
		seedThread(t, b.store, 2, 3)
		b.cursors.cur = model.SyncCursor{
			CatalogModifiedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			LastArchiveThreadID: 97,
			StorageRoot:         "/srv/threads",
		}
		b.sched.reports = []syncer.Report{
			{Kind: syncer.KindCatalog, StartedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Created: 2, Skipped: 4},
			{Kind: syncer.KindArchive, Err: errors.New("index fetch failed")},
		}

		b.handleStatus(ctx, 100)
		got := b.api.lastText()
		requireContains(t, got, "Stored threads: 2")
		requireContains(t, got, "Storage: /srv/threads")
		requireContains(t, got, "Catalog synced: 2024-03-01 10:00 UTC")
		requireContains(t, got, "Archive synced: never")
		requireContains(t, got, "Last archived thread: #97")
		requireContains(t, got, "2 new, 0 updated, 4 skipped")
		requireContains(t, got, "archive pass at never (0s) FAILED: index fetch failed")
	})

	t.Run("cursor error", func(t *testing.T) {
		b := newTestBot(t)
		b.cursors.err = errors.New("disk gone")
		b.handleStatus(ctx, 100)
		requireContains(t, b.api.lastText(), "Error reading cursor: disk gone")
	})
}

func TestHandleSync(t *testing.T) {
	b := newTestBot(t)

	b.handleSync(100)
	requireContains(t, b.api.lastText(), "Sync queued")

	b.handleSync(100)
	requireContains(t, b.api.lastText(), "already queued")
}

func TestHandleThread(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		args     string
		contains []string
	}{
		{name: "missing id", args: "", contains: []string{"Usage: /thread <id>"}},
		{name: "bad id", args: "abc", contains: []string{"Usage: /thread <id>"}},
		{name: "not mirrored", args: "999", contains: []string{"Thread #999 is not mirrored yet."}},
		{
			name: "mirrored",
			args: "#42",
			contains: []string{
				"#42 General",
				"Posted: 2024-03-01 12:00 UTC",
				"Replies: 2 (last 2024-03-01 12:02 UTC)",
				"Image: https://i.example.com/biz/1.png",
				"opening post",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot(t)
			seedThread(t, b.store, 42, 2)
			b.handleThread(ctx, 100, tt.args)
			for _, want := range tt.contains {
				requireContains(t, b.api.lastText(), want)
			}
		})
	}
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()

	makeMsg := func(cmd, args string) *tgbotapi.Message {
		text := "/" + cmd
		if args != "" {
			text += " " + args
		}
		return &tgbotapi.Message{
			Chat: &tgbotapi.Chat{ID: 100},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len("/" + cmd)},
			},
		}
	}

	b := newTestBot(t)
	seedThread(t, b.store, 7, 0)

	cmds := []struct {
		cmd      string
		args     string
		contains string
	}{
		{"start", "", "Board mirror"},
		{"help", "", "/sync"},
		{"status", "", "Stored threads: 1"},
		{"sync", "", "Sync queued"},
		{"thread", "7", "#7 General"},
		{"unknown_cmd", "", "Unknown command"},
	}

	for _, tc := range cmds {
		b.api.reset()
		b.handleCommand(ctx, makeMsg(tc.cmd, tc.args))
		requireContains(t, b.api.lastText(), tc.contains)
	}
}

func TestHandleCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown action", func(t *testing.T) {
		b := newTestBot(t)
		cb := &tgbotapi.CallbackQuery{
			ID:      "cb1",
			Data:    "nocolon",
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		}
		b.handleCallback(ctx, cb)
		if diff := cmp.Diff(0, len(b.api.allMessages())); diff != "" {
			t.Errorf("expected no text messages (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(1, b.api.acks); diff != "" {
			t.Errorf("callback acks (-want +got):\n%s", diff)
		}
	})

	t.Run("sync", func(t *testing.T) {
		b := newTestBot(t)
		cb := &tgbotapi.CallbackQuery{
			ID:      "cb2",
			Data:    "sync",
			From:    &tgbotapi.User{ID: 5, UserName: "op"},
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		}
		b.handleCallback(ctx, cb)
		requireContains(t, b.api.lastText(), "Sync queued")
		if !b.sched.queued {
			t.Error("expected a sync to be triggered")
		}
	})

	t.Run("thread refresh", func(t *testing.T) {
		b := newTestBot(t)
		seedThread(t, b.store, 42, 1)
		cb := &tgbotapi.CallbackQuery{
			ID:      "cb3",
			Data:    "thread:42",
			Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 100}},
		}
		b.handleCallback(ctx, cb)
		requireContains(t, b.api.lastText(), "Replies: 1")
	})
}

func TestReport(t *testing.T) {
	t.Run("no alert chat", func(t *testing.T) {
		b := newTestBot(t)
		b.Report(slog.LevelError, "pass failed")
		if diff := cmp.Diff(0, len(b.api.allMessages())); diff != "" {
			t.Errorf("expected no messages (-want +got):\n%s", diff)
		}
	})

	t.Run("alert chat set", func(t *testing.T) {
		b := newTestBot(t)
		b.cfg.AlertChatID = -500
		b.Report(slog.LevelError, "pass failed pass=catalog")
		want := []sentMsg{{ChatID: -500, Text: "[ERROR] pass failed pass=catalog"}}
		if diff := cmp.Diff(want, b.api.allMessages()); diff != "" {
			t.Errorf("alert messages (-want +got):\n%s", diff)
		}
	})
}
