package bot

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"ridematch/config"
	"ridematch/pkg/apperr"
	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/service"
)

const handlerTimeout = 10 * time.Second

// Bot answers chat commands from linked accounts. It only ever replies to
// the sender of a command.
type Bot struct {
	Bot *tele.Bot
	Svc service.IServiceManager
	Log logger.ILogger
	Cfg *config.Config
}

func New(cfg *config.Config, svc service.IServiceManager, log logger.ILogger) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.TelegramBotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}
	bot := &Bot{
		Bot: b,
		Svc: svc,
		Log: log,
		Cfg: cfg,
	}
	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	b.Log.Info("telegram bot started", logger.String("username", b.Bot.Me.Username))
	b.Bot.Start()
}

func (b *Bot) Stop() {
	b.Bot.Stop()
}

var messages = map[string]string{
	"welcome":        "👋 Welcome! Link your account first:\n/link email password",
	"not_linked":     "🔒 This chat is not linked yet. Use /link email password",
	"linked":         "✅ Linked to %s (%s).",
	"menu_passenger": "👤 Passenger menu",
	"menu_driver":    "🚖 Driver menu",
	"request_usage":  "Usage: /request pickup | drop | bike|car|rickshaw | payment",
	"request_made":   "✅ Request #%d created. Waiting for a driver.",
	"nothing":        "📭 Nothing in progress.",
	"no_history":     "📭 No finished trips yet.",
	"no_open":        "📭 No open requests right now.",
	"no_rides":       "📭 You have no rides yet.",
	"no_payments":    "📭 No payments yet.",
	"cancelled":      "❌ %s #%d cancelled.",
	"accepted":       "✅ Request accepted. Ride #%d is yours.",
	"rejected":       "🙈 Request #%d hidden.",
	"status_set":     "📊 Ride #%d is now %s.",
	"online":         "🟢 You are online.",
	"offline":        "🔴 You are offline.",
	"balance":        "💰 Balance: %s",
	"error":          "⚠️ %s",
}

func (b *Bot) registerHandlers() {
	b.Bot.Handle("/start", b.handleStart)
	b.Bot.Handle("/help", b.handleStart)
	b.Bot.Handle("/link", b.handleLink)

	b.Bot.Handle("/request", b.handleRequest)
	b.Bot.Handle("/current", b.handleCurrent)
	b.Bot.Handle("/cancel", b.handleCancel)
	b.Bot.Handle("/history", b.handleHistory)

	b.Bot.Handle("/open", b.handleOpen)
	b.Bot.Handle("/accept", b.handleAccept)
	b.Bot.Handle("/reject", b.handleReject)
	b.Bot.Handle("/status", b.handleStatus)
	b.Bot.Handle("/rides", b.handleMyRides)
	b.Bot.Handle("/online", b.handleOnline)
	b.Bot.Handle("/offline", b.handleOffline)
	b.Bot.Handle("/balance", b.handleBalance)
	b.Bot.Handle("/payments", b.handlePayments)

	b.Bot.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// account resolves the sender to a linked account. A nil account with a nil
// error means the sender has already been told to link.
func (b *Bot) account(ctx context.Context, c tele.Context) (*models.Account, error) {
	acc, err := b.Svc.User().GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.ErrNotFound {
			return nil, c.Send(messages["not_linked"])
		}
		return nil, b.replyError(c, err)
	}
	return acc, nil
}

func (b *Bot) replyError(c tele.Context, err error) error {
	if apperr.KindOf(err) == apperr.ErrStorage {
		b.Log.Error("bot command failed", logger.Int64("telegram_id", c.Sender().ID), logger.Error(err))
	}
	return c.Send(fmt.Sprintf(messages["error"], apperr.PublicMessage(err)))
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.Svc.User().GetByTelegramID(ctx, c.Sender().ID)
	if err != nil {
		if apperr.KindOf(err) == apperr.ErrNotFound {
			return c.Send(messages["welcome"])
		}
		return b.replyError(c, err)
	}
	return b.showMenu(c, acc)
}

func (b *Bot) handleLink(c tele.Context) error {
	email, password, err := parseLinkArgs(c.Message().Payload)
	if err != nil {
		return b.replyError(c, err)
	}

	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.Svc.User().LinkTelegram(ctx, email, password, c.Sender().ID)
	if err != nil {
		return b.replyError(c, err)
	}
	if err := c.Send(fmt.Sprintf(messages["linked"], acc.Email, acc.Role)); err != nil {
		return err
	}
	return b.showMenu(c, acc)
}

func (b *Bot) showMenu(c tele.Context, acc *models.Account) error {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true}

	if acc.IsDriver() {
		menu.Reply(
			menu.Row(menu.Text("/open"), menu.Text("/rides")),
			menu.Row(menu.Text("/online"), menu.Text("/offline")),
			menu.Row(menu.Text("/balance"), menu.Text("/payments")),
		)
		return c.Send(messages["menu_driver"], menu)
	}

	menu.Reply(
		menu.Row(menu.Text("/current"), menu.Text("/history")),
	)
	return c.Send(messages["menu_passenger"]+"\n"+messages["request_usage"], menu)
}

func (b *Bot) handleCallback(c tele.Context) error {
	action, id, arg, err := parseCallback(c.Callback().Data)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: apperr.PublicMessage(err), ShowAlert: true})
	}

	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}

	var reply string
	switch action {
	case callbackAccept:
		var rideID int64
		if rideID, err = b.Svc.Matching().Accept(ctx, acc, id); err == nil {
			reply = fmt.Sprintf(messages["accepted"], rideID)
		}
	case callbackReject:
		if err = b.Svc.Matching().Reject(ctx, acc, id); err == nil {
			reply = fmt.Sprintf(messages["rejected"], id)
		}
	case callbackStatus:
		status := models.RideStatus(arg)
		if _, err = b.Svc.Lifecycle().UpdateStatus(ctx, acc, id, status); err == nil {
			reply = fmt.Sprintf(messages["status_set"], id, status)
		}
	case callbackCancel:
		var kind models.EntryKind
		if kind, err = b.Svc.Lifecycle().Cancel(ctx, acc, id); err == nil {
			reply = fmt.Sprintf(messages["cancelled"], kindLabel(kind), id)
		}
	}
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: apperr.PublicMessage(err), ShowAlert: true})
	}

	if err := c.Respond(); err != nil {
		b.Log.Warning("failed to answer callback", logger.Error(err))
	}
	return c.Send(reply)
}
