package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"changelog-bot/internal/components/chrono"
	"changelog-bot/internal/components/telemetry"
	"changelog-bot/internal/pipeline"
	"changelog-bot/lib/changelog"
	"changelog-bot/lib/changelog/store"
	"changelog-bot/lib/ledger"
	"changelog-bot/lib/notify"
	"changelog-bot/lib/notify/email"
	"changelog-bot/lib/restyutil"
	"changelog-bot/lib/scrapers/sidefx"
	"changelog-bot/lib/telegram"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// restyOutput is where HTTP exchanges of a client are dumped, nil unless
// running verbose with resty_output configured.
func restyOutput(cfg Config, client string) restyutil.InstrumentOutput {
	if !verbose || cfg.RestyOutput == "" {
		return nil
	}
	out, err := restyutil.NewFilesystemOutput(filepath.Join(cfg.RestyOutput, client))
	if err != nil {
		slog.Warn("failed to create resty output", "client", client, "err", err)
		return nil
	}
	return out
}

func newExtractor(cfg Config) *sidefx.Client {
	return sidefx.NewClient(sidefx.ClientOptions{
		Url:              cfg.Url,
		Timeout:          cfg.Http.Timeout(),
		Retries:          cfg.Http.Retries,
		UserAgent:        cfg.Http.UserAgent,
		CloudflareBypass: cfg.Http.CloudflareBypass,
		Output:           restyOutput(cfg, "sidefx"),
	})
}

func newTelegram(cfg Config) (*telegram.Bot, error) {
	return telegram.New(telegram.Options{
		Token:   cfg.Telegram.Token,
		BaseUrl: cfg.Telegram.BaseUrl,
		Timeout: cfg.Http.Timeout(),
		Retries: cfg.Telegram.Retries,
		Output:  restyOutput(cfg, "telegram"),
	})
}

// newNotifier returns the configured notifier and the chat it posts to.
func newNotifier(cfg Config) (notify.Notifier, string, error) {
	switch cfg.Notifier {
	case "console":
		return notify.Console{Out: os.Stdout}, "console", nil
	case "email":
		if cfg.Email.To == "" {
			return nil, "", errors.New("email.to is not set")
		}
		n, err := email.New(email.Options{
			Addr:     cfg.Email.Addr,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			Subject:  cfg.Email.Subject,
		})
		return n, cfg.Email.To, err
	}

	if cfg.Telegram.ChatID == "" {
		return nil, "", fmt.Errorf("telegram chat id is not set (%s)", env_chat_id)
	}
	bot, err := newTelegram(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("%w (%s)", err, env_bot_token)
	}
	return bot, cfg.Telegram.ChatID, nil
}

// openLedger returns nil when no ledger is configured.
func openLedger(cfg Config) (*ledger.Ledger, error) {
	if cfg.Ledger.File == "" {
		return nil, nil
	}
	return ledger.Open(cfg.Ledger.File)
}

func newStore(cfg Config) store.FileStore {
	return store.NewFileStore(cfg.Store.File)
}

// pipelineOptions wires everything a run needs except the notifier, the
// returned cleanup closes the ledger.
func pipelineOptions(cfg Config) (pipeline.Options, func(), error) {
	retention, err := store.ParseRetention(cfg.Store.Retention)
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return pipeline.Options{}, nil, fmt.Errorf("timezone: %w", err)
	}

	opts := pipeline.Options{
		Extractor: newExtractor(cfg),
		Store:     newStore(cfg),
		Retention: retention,
		Lines:     cfg.Lines,
		Renderer:  changelog.NewRenderer(cfg.IconTable()),
		Telemetry: telemetry.SlogAPI{},
		Clock:     clock,
	}

	l, err := openLedger(cfg)
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	cleanup := func() {}
	if l != nil {
		opts.Ledger = l
		cleanup = func() {
			err := l.Close()
			if err != nil {
				slog.Warn("failed to close ledger", "err", err)
			}
		}
	}
	return opts, cleanup, nil
}
