package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"gopkg.in/telebot.v4"

	"colorshift/pkg/lib"
	"colorshift/pkg/utils"
)

// sender is the part of *telebot.Bot used to deliver alerts.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

type Subscribers = map[int64]*telebot.Chat

// Telegram sends alerts to every chat that subscribed with /start.
type Telegram struct {
	Bot *telebot.Bot

	sender      sender
	subscribers Subscribers
	savePath    string
	workers     int

	mu     sync.RWMutex
	logger *log.Logger
}

type TelegramConfig struct {
	Token           string
	SubscribersFile string
	Output          io.Writer
	Level           log.Level
}

func NewTelegram(config TelegramConfig) (*Telegram, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Token:  config.Token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	logger := log.NewWithOptions(config.Output,
		log.Options{
			Level:           config.Level,
			ReportTimestamp: true,
			Prefix:          "[Telegram]",
		},
	)
	logger.SetColorProfile(termenv.TrueColor)

	t := newTelegram(bot, logger, config.SubscribersFile)
	t.Bot = bot
	return t, nil
}

func newTelegram(s sender, logger *log.Logger, savePath string) *Telegram {
	return &Telegram{
		sender:      s,
		subscribers: make(Subscribers),
		savePath:    savePath,
		workers:     8,
		logger:      logger,
	}
}

func (t *Telegram) Logger() *log.Logger {
	return t.logger
}

// Start loads saved subscribers, registers the bot commands and starts polling.
func (t *Telegram) Start() error {
	if t.Bot == nil {
		return errors.New("telegram bot is not initialized")
	}
	if err := t.load(); err != nil {
		t.logger.Warn("Could not load subscribers", "path", t.savePath, "err", err)
	}
	t.Bot.Handle("/start", t.handleSubscribe)
	t.Bot.Handle("/stop", t.handleUnsubscribe)
	go t.Bot.Start()
	t.logger.Info("Telegram bot started", "subscribers", t.Len())
	return nil
}

// Stop stops polling and saves subscribers.
func (t *Telegram) Stop() error {
	t.logger.Info("Stopping Telegram bot")
	if t.Bot != nil {
		t.Bot.Stop()
	}
	return t.save()
}

func (t *Telegram) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}

func (t *Telegram) Subscribe(chat *telebot.Chat) {
	t.mu.Lock()
	t.subscribers[chat.ID] = chat
	t.mu.Unlock()
}

func (t *Telegram) Unsubscribe(id int64) {
	t.mu.Lock()
	delete(t.subscribers, id)
	t.mu.Unlock()
}

func (t *Telegram) handleSubscribe(c telebot.Context) error {
	chat := c.Chat()
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	t.Subscribe(chat)
	if err := c.Send("Subscribed to change alerts"); err != nil {
		return err
	}
	if err := t.save(); err != nil {
		t.logger.Error("Could not save subscribers", "err", err)
	}
	t.logger.Info("Subscribed successfully", "username", chat.Username, "id", chat.ID)
	return nil
}

func (t *Telegram) handleUnsubscribe(c telebot.Context) error {
	chat := c.Chat()
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	t.Unsubscribe(chat.ID)
	if err := c.Send("Unsubscribed"); err != nil {
		return err
	}
	if err := t.save(); err != nil {
		t.logger.Error("Could not save subscribers", "err", err)
	}
	t.logger.Info("Unsubscribed successfully", "username", chat.Username, "id", chat.ID)
	return nil
}

// Publish sends the alert to every subscriber concurrently. A photo of the after capture
// is attached when AfterPath is set.
func (t *Telegram) Publish(ctx context.Context, alert Alert) Outcome {
	t.mu.RLock()
	chats := slices.Collect(maps.Values(t.subscribers))
	t.mu.RUnlock()

	if len(chats) == 0 {
		t.logger.Warn("No subscribers to notify", "after", alert.AfterPath)
		return Outcome{}
	}

	caption := alert.Caption()
	pool := utils.NewWorkerPool(min(t.workers, len(chats)), func(chat *telebot.Chat) *lib.PublishError {
		recipient := strconv.FormatInt(chat.ID, 10)
		if err := ctx.Err(); err != nil {
			return &lib.PublishError{Kind: Classify(err), Recipient: recipient, Err: err}
		}
		var what any = caption
		if alert.AfterPath != "" {
			what = &telebot.Photo{File: telebot.FromDisk(alert.AfterPath), Caption: caption}
		}
		if _, err := t.sender.Send(chat, what); err != nil {
			return &lib.PublishError{Kind: Classify(err), Recipient: recipient, Err: err}
		}
		return nil
	})
	pool.AddAndClose(chats...)

	var outcome Outcome
	for failure := range pool.Iter() {
		if failure == nil {
			outcome.Delivered++
			continue
		}
		t.logger.Error("Failed to publish alert", "recipient", failure.Recipient, "kind", failure.Kind, "err", failure.Err)
		outcome.Failures = append(outcome.Failures, failure)
	}
	t.logger.Info("Published alert", "delivered", outcome.Delivered, "failed", len(outcome.Failures))
	return outcome
}

func (t *Telegram) save() error {
	if t.savePath == "" {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return utils.SaveFile(t.savePath, t.subscribers)
}

func (t *Telegram) load() error {
	if t.savePath == "" {
		return nil
	}
	subscribers, err := utils.LoadFile[Subscribers](t.savePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	t.mu.Lock()
	maps.Copy(t.subscribers, subscribers)
	t.mu.Unlock()
	return nil
}
