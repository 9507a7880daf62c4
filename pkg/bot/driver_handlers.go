package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"ridematch/pkg/models"
)

func statusMenu(ride *models.Ride) *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{}
	var row []tele.Btn
	for _, s := range nextStatuses(ride.Status) {
		row = append(row, menu.Data(string(s), callbackData(callbackStatus, ride.ID, string(s))))
	}
	if len(row) > 0 {
		menu.Inline(menu.Row(row...))
	}
	return menu
}

// withButtons drops keyboards that ended up without buttons.
func withButtons(menu *tele.ReplyMarkup) []interface{} {
	if menu == nil || len(menu.InlineKeyboard) == 0 {
		return nil
	}
	return []interface{}{menu}
}

func (b *Bot) handleOpen(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	open, err := b.Svc.Matching().ListOpen(ctx, acc)
	if err != nil {
		return b.replyError(c, err)
	}
	if len(open) == 0 {
		return c.Send(messages["no_open"])
	}

	for _, r := range open {
		menu := &tele.ReplyMarkup{}
		menu.Inline(menu.Row(
			menu.Data("📥 Accept", callbackData(callbackAccept, r.ID, "")),
			menu.Data("🙈 Reject", callbackData(callbackReject, r.ID, "")),
		))
		if err := c.Send(formatRequest(r), menu); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleAccept(c tele.Context) error {
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
	rideID, err := b.Svc.Matching().Accept(ctx, acc, id)
	if err != nil {
		return b.replyError(c, err)
	}
	return c.Send(fmt.Sprintf(messages["accepted"], rideID))
}

func (b *Bot) handleReject(c tele.Context) error {
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
	if err := b.Svc.Matching().Reject(ctx, acc, id); err != nil {
		return b.replyError(c, err)
	}
	return c.Send(fmt.Sprintf(messages["rejected"], id))
}

func (b *Bot) handleStatus(c tele.Context) error {
	id, status, err := parseStatusArgs(c.Message().Payload)
	if err != nil {
		return b.replyError(c, err)
	}

	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	ride, err := b.Svc.Lifecycle().UpdateStatus(ctx, acc, id, status)
	if err != nil {
		return b.replyError(c, err)
	}
	return c.Send(fmt.Sprintf(messages["status_set"], ride.ID, ride.Status), withButtons(statusMenu(ride))...)
}

func (b *Bot) handleMyRides(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	rides, err := b.Svc.Lifecycle().DriverRides(ctx, acc)
	if err != nil {
		return b.replyError(c, err)
	}
	if len(rides) == 0 {
		return c.Send(messages["no_rides"])
	}
	for _, r := range rides {
		if err := c.Send(formatRide(r), withButtons(statusMenu(r))...); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleOnline(c tele.Context) error {
	return b.setAvailability(c, true)
}

func (b *Bot) handleOffline(c tele.Context) error {
	return b.setAvailability(c, false)
}

func (b *Bot) setAvailability(c tele.Context, available bool) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	if _, err := b.Svc.User().SetAvailability(ctx, acc, available); err != nil {
		return b.replyError(c, err)
	}
	if available {
		return c.Send(messages["online"])
	}
	return c.Send(messages["offline"])
}

func (b *Bot) handleBalance(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	balance, err := b.Svc.Settlement().GetBalance(ctx, acc)
	if err != nil {
		return b.replyError(c, err)
	}
	return c.Send(fmt.Sprintf(messages["balance"], balance.StringFixed(2)))
}

func (b *Bot) handlePayments(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	acc, err := b.account(ctx, c)
	if acc == nil {
		return err
	}
	payments, err := b.Svc.Settlement().ListPayments(ctx, acc)
	if err != nil {
		return b.replyError(c, err)
	}
	if len(payments) == 0 {
		return c.Send(messages["no_payments"])
	}
	return c.Send(formatPayments(payments))
}
