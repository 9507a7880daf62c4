package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"ridematch/pkg/models"
)

func (b *Bot) handleRequest(c tele.Context) error {
	in, err := parseRequestArgs(c.Message().Payload)
	if err != nil {
		return b.replyError(c, err)
	}

	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	id, err := b.Svc.Request().CreateRequest(ctx, acc, in)
	if err != nil {
		return b.replyError(c, err)
	}

	menu := &tele.ReplyMarkup{}
	menu.Inline(menu.Row(menu.Data("❌ Cancel", callbackData(callbackCancel, id, ""))))
	return c.Send(fmt.Sprintf(messages["request_made"], id), menu)
}

func (b *Bot) handleCurrent(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}

	if acc.IsDriver() {
		ride, err := b.Svc.Lifecycle().CurrentForDriver(ctx, acc)
		if err != nil {
			return b.replyError(c, err)
		}
		if ride == nil {
			return c.Send(messages["nothing"])
		}
		return c.Send(formatRide(ride), withButtons(statusMenu(ride))...)
	}

	cur, err := b.Svc.Request().GetCurrent(ctx, acc)
	if err != nil {
		return b.replyError(c, err)
	}
	if cur == nil {
		return c.Send(messages["nothing"])
	}

	menu := &tele.ReplyMarkup{}
	switch {
	case cur.Kind == models.KindRequest:
		menu.Inline(menu.Row(menu.Data("❌ Cancel", callbackData(callbackCancel, cur.Request.ID, ""))))
	case cur.Ride.Status == models.RideAccepted:
		menu.Inline(menu.Row(menu.Data("❌ Cancel", callbackData(callbackCancel, cur.Ride.ID, ""))))
	}
	return c.Send(formatCurrent(cur), withButtons(menu)...)
}

func (b *Bot) handleCancel(c tele.Context) error {
	id, err := parseID(c.Message().Payload)
	if err != nil {
		return b.replyError(c, err)
	}

	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	kind, err := b.Svc.Lifecycle().Cancel(ctx, acc, id)
	if err != nil {
		return b.replyError(c, err)
	}
	return c.Send(fmt.Sprintf(messages["cancelled"], kindLabel(kind), id))
}

func (b *Bot) handleHistory(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	entries, err := b.Svc.Request().History(ctx, acc)
	if err != nil {
		return b.replyError(c, err)
	}
	if len(entries) == 0 {
		return c.Send(messages["no_history"])
	}
	return c.Send(formatHistory(entries))
}
