// Package telegram adapts the Telegram Bot API to bot events: it receives
// updates by long polling or webhook, runs each one on a bounded worker pool
// and delivers handler replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/dicebot/internal/bot"
)

// FailureText is sent to the chat when a handler fails.
const FailureText = "Something went wrong. Please try again later."

// API is the subset of *tgbotapi.BotAPI the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Handler interface {
	Handle(ctx context.Context, ev bot.Event, out bot.Responder) error
}

type Adapter struct {
	api     API
	handler Handler
	logger  *slog.Logger
	pool    errgroup.Group
	now     func() time.Time
}

func NewAdapter(api API, handler Handler, logger *slog.Logger, workers int) *Adapter {
	a := &Adapter{api: api, handler: handler, logger: logger, now: time.Now}
	a.pool.SetLimit(workers)
	return a
}

// Poll long-polls for updates until ctx is done, then waits for in-flight
// events to finish.
func (a *Adapter) Poll(ctx context.Context) error {
	if _, err := a.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("removing webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := a.api.GetUpdatesChan(u)

	a.logger.Info("polling for updates")
	for {
		select {
		case <-ctx.Done():
			a.api.StopReceivingUpdates()
			a.Wait()
			return nil
		case upd, ok := <-updates:
			if !ok {
				a.Wait()
				return nil
			}
			a.Submit(ctx, upd)
		}
	}
}

// RegisterWebhook points Telegram at url.
func (a *Adapter) RegisterWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}
	if _, err := a.api.Request(wh); err != nil {
		return fmt.Errorf("setting webhook: %w", err)
	}
	return nil
}

// Submit schedules one update on the worker pool, blocking while the pool is
// full. The update keeps running after ctx is canceled so shutdown drains it.
func (a *Adapter) Submit(ctx context.Context, upd tgbotapi.Update) {
	ctx = context.WithoutCancel(ctx)
	a.pool.Go(func() error {
		a.dispatch(ctx, upd)
		return nil
	})
}

// Wait blocks until every submitted update has been handled.
func (a *Adapter) Wait() {
	_ = a.pool.Wait()
}

func (a *Adapter) dispatch(ctx context.Context, upd tgbotapi.Update) {
	ev, ok := EventFromUpdate(upd, a.now())
	if !ok {
		return
	}

	start := a.now()
	err := a.handle(ctx, ev)
	if err == nil {
		a.logger.Debug("event handled",
			"update_id", upd.UpdateID,
			"chat_id", ev.ChatID,
			"duration_ms", a.now().Sub(start).Milliseconds(),
		)
		return
	}

	a.logger.Error("event failed",
		"update_id", upd.UpdateID,
		"chat_id", ev.ChatID,
		"user", ev.User,
		"error", err,
	)
	if ev.ChatID == 0 {
		return
	}
	if err := a.responder().Send(ctx, ev.ChatID, bot.Reply{Text: FailureText}); err != nil {
		a.logger.Error("sending failure notice", "chat_id", ev.ChatID, "error", err)
	}
}

var errPanic = errors.New("handler panicked")

func (a *Adapter) handle(ctx context.Context, ev bot.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return a.handler.Handle(ctx, ev, a.responder())
}

func (a *Adapter) responder() bot.Responder {
	return responder{api: a.api}
}

// EventFromUpdate maps a Telegram update onto a bot event. Updates the bot
// does not react to (edits, channel posts, inline queries) report false.
func EventFromUpdate(upd tgbotapi.Update, now time.Time) (bot.Event, bool) {
	switch {
	case upd.CallbackQuery != nil:
		q := upd.CallbackQuery
		ev := bot.Event{
			Kind:       bot.KindCallback,
			Data:       q.Data,
			CallbackID: q.ID,
			User:       userName(q.From),
			At:         now,
		}
		if q.Message != nil {
			ev.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				ev.ChatID = q.Message.Chat.ID
				ev.ChatType = bot.ChatType(q.Message.Chat.Type)
			}
		}
		return ev, true

	case upd.Message != nil:
		m := upd.Message
		ev := bot.Event{
			Kind:      bot.KindMessage,
			User:      userName(m.From),
			MessageID: m.MessageID,
			At:        now,
		}
		if m.Chat != nil {
			ev.ChatID = m.Chat.ID
			ev.ChatType = bot.ChatType(m.Chat.Type)
		}
		if m.IsCommand() {
			ev.Kind = bot.KindCommand
			ev.Command = m.Command()
		}
		return ev, true
	}
	return bot.Event{}, false
}

// userName returns the Telegram username, falling back to the numeric id for
// accounts without one.
func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return strconv.FormatInt(u.ID, 10)
}

type responder struct {
	api API
}

func (r responder) Send(_ context.Context, chatID int64, reply bot.Reply) error {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if reply.Button != nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(reply.Button.Label, reply.Button.Data),
			),
		)
	}
	if _, err := r.api.Send(msg); err != nil {
		return fmt.Errorf("sending message to %d: %w", chatID, err)
	}
	return nil
}

func (r responder) Edit(_ context.Context, chatID int64, messageID int, reply bot.Reply) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, reply.Text)
	if reply.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if reply.Button != nil {
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(reply.Button.Label, reply.Button.Data),
			),
		)
		edit.ReplyMarkup = &markup
	}
	if _, err := r.api.Send(edit); err != nil {
		return fmt.Errorf("editing message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

func (r responder) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := r.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("answering callback %s: %w", callbackID, err)
	}
	return nil
}
