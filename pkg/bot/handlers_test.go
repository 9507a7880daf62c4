package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v3"

	"ridematch/pkg/logger"
	"ridematch/pkg/models"
	"ridematch/service"
	"ridematch/storage/memory"
)

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context
	sender  *tele.User
	payload string
	data    string
	sent    []string
	alerts  []string
}

func (f *fakeContext) Sender() *tele.User { return f.sender }

func (f *fakeContext) Message() *tele.Message {
	return &tele.Message{Sender: f.sender, Payload: f.payload}
}

func (f *fakeContext) Callback() *tele.Callback {
	return &tele.Callback{Sender: f.sender, Data: f.data}
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, fmt.Sprint(what))
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	for _, r := range resp {
		f.alerts = append(f.alerts, r.Text)
	}
	return nil
}

func (f *fakeContext) last() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type chat struct {
	t   *testing.T
	bot *Bot
	id  int64
}

func (c chat) run(handler func(tele.Context) error, payload string) *fakeContext {
	c.t.Helper()
	ctx := &fakeContext{sender: &tele.User{ID: c.id}, payload: payload}
	if err := handler(ctx); err != nil {
		c.t.Fatalf("handler returned %v", err)
	}
	return ctx
}

func (c chat) expect(handler func(tele.Context) error, payload, want string) {
	c.t.Helper()
	got := c.run(handler, payload).last()
	if !strings.Contains(got, want) {
		c.t.Fatalf("reply %q does not contain %q", got, want)
	}
}

func newTestBot(t *testing.T) (*Bot, service.IServiceManager) {
	t.Helper()
	svc := service.New(memory.New(), nil, logger.NewNop())
	return &Bot{Svc: svc, Log: logger.NewNop()}, svc
}

func register(t *testing.T, svc service.IServiceManager, email string, role models.Role) {
	t.Helper()
	if _, err := svc.User().Register(context.Background(), models.Registration{
		Email: email, Password: "secret1", FullName: "Chat User", Role: role,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestUnlinkedChat(t *testing.T) {
	b, _ := newTestBot(t)
	stranger := chat{t: t, bot: b, id: 1}

	stranger.expect(b.handleStart, "", "Link your account")
	stranger.expect(b.handleCurrent, "", "not linked")
	stranger.expect(b.handleLink, "only-one-arg", "usage: /link")
	stranger.expect(b.handleLink, "nobody@example.com secret1", "invalid email or password")
}

func TestRideOverChat(t *testing.T) {
	b, svc := newTestBot(t)
	register(t, svc, "p@example.com", models.RolePassenger)
	register(t, svc, "d@example.com", models.RoleDriver)

	passenger := chat{t: t, bot: b, id: 100}
	driver := chat{t: t, bot: b, id: 200}

	passenger.run(b.handleLink, "p@example.com secret1")
	driver.run(b.handleLink, "d@example.com secret1")

	passenger.expect(b.handleRequest, "Depot", "Usage: /request")
	passenger.expect(b.handleRequest, "Depot | Bay | boat | 3", "unknown category")
	passenger.expect(b.handleRequest, "Depot | Bay | bike | 12", "created")
	passenger.expect(b.handleCurrent, "", "waiting for a driver")

	driver.expect(b.handleOpen, "", "not available")
	driver.expect(b.handleOnline, "", "online")
	open := driver.run(b.handleOpen, "")
	if len(open.sent) != 1 || !strings.Contains(open.sent[0], "Depot") {
		t.Fatalf("open list %v", open.sent)
	}

	acc, err := svc.User().GetByTelegramID(context.Background(), passenger.id)
	if err != nil {
		t.Fatal(err)
	}
	cur, err := svc.Request().GetCurrent(context.Background(), acc)
	if err != nil || cur == nil {
		t.Fatalf("current: %+v, %v", cur, err)
	}
	reqID := fmt.Sprint(cur.Request.ID)

	driver.expect(b.handleAccept, reqID, "Ride #")
	passenger.expect(b.handleRequest, "Depot | Bay | bike | 12", "already has an active ride")

	driverAcc, err := svc.User().GetByTelegramID(context.Background(), driver.id)
	if err != nil {
		t.Fatal(err)
	}
	ride, err := svc.Lifecycle().CurrentForDriver(context.Background(), driverAcc)
	if err != nil || ride == nil {
		t.Fatalf("driver ride: %+v, %v", ride, err)
	}
	rideID := fmt.Sprint(ride.ID)

	driver.expect(b.handleStatus, rideID+" completed", "cannot move")
	driver.expect(b.handleStatus, rideID+" in_progress", "in_progress")
	driver.expect(b.handleStatus, rideID+" completed", "completed")
	driver.expect(b.handleBalance, "", "12.00")
	driver.expect(b.handlePayments, "", "12.00")

	passenger.expect(b.handleHistory, "", "completed")
	passenger.expect(b.handleCurrent, "", "Nothing in progress")
	passenger.expect(b.handleBalance, "", "only drivers")
}

func TestCallbacks(t *testing.T) {
	b, svc := newTestBot(t)
	register(t, svc, "p@example.com", models.RolePassenger)
	register(t, svc, "d@example.com", models.RoleDriver)

	passenger := chat{t: t, bot: b, id: 100}
	driver := chat{t: t, bot: b, id: 200}
	passenger.run(b.handleLink, "p@example.com secret1")
	driver.run(b.handleLink, "d@example.com secret1")
	driver.run(b.handleOnline, "")

	passenger.run(b.handleRequest, "North | South | car | 9")
	acc, _ := svc.User().GetByTelegramID(context.Background(), passenger.id)
	cur, err := svc.Request().GetCurrent(context.Background(), acc)
	if err != nil || cur == nil {
		t.Fatalf("current: %+v, %v", cur, err)
	}

	press := func(id int64, data string) *fakeContext {
		ctx := &fakeContext{sender: &tele.User{ID: id}, data: "\f" + data}
		if err := b.handleCallback(ctx); err != nil {
			t.Fatal(err)
		}
		return ctx
	}

	if got := press(driver.id, callbackData(callbackReject, cur.Request.ID, "")).last(); !strings.Contains(got, "hidden") {
		t.Fatalf("reject reply %q", got)
	}
	if got := press(driver.id, callbackData(callbackReject, cur.Request.ID, "")); len(got.alerts) != 1 {
		t.Fatalf("duplicate reject should alert, got %v", got.alerts)
	}
	if got := press(passenger.id, callbackData(callbackCancel, cur.Request.ID, "")).last(); !strings.Contains(got, "Request #") {
		t.Fatalf("cancel reply %q", got)
	}
	if got := press(driver.id, "bogus"); len(got.alerts) != 1 {
		t.Fatalf("malformed button should alert, got %v", got.alerts)
	}
}
