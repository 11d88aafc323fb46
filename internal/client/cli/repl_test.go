package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	err      error

	calls []string
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) MagicLink(context.Context) error { return f.record("magic") }
func (f *fakeExec) Verify(_ context.Context, code string) error {
	return f.record("verify:" + code)
}
func (f *fakeExec) Widget(context.Context) error    { return f.record("widget") }
func (f *fakeExec) Register(context.Context) error  { return f.record("register") }
func (f *fakeExec) Dashboard(context.Context) error { return f.record("dashboard") }
func (f *fakeExec) Accounts(_ context.Context, args []string) error {
	return f.record("accounts" + join(args))
}
func (f *fakeExec) Categories(_ context.Context, args []string) error {
	return f.record("categories" + join(args))
}
func (f *fakeExec) Transactions(_ context.Context, args []string) error {
	return f.record("tx" + join(args))
}
func (f *fakeExec) Profile(_ context.Context, args []string) error {
	return f.record("profile" + join(args))
}
func (f *fakeExec) Settings(context.Context) error    { return f.record("settings") }
func (f *fakeExec) SetPassword(context.Context) error { return f.record("setpassword") }
func (f *fakeExec) Connect(context.Context) error     { return f.record("connect") }
func (f *fakeExec) Refresh(context.Context) error     { return f.record("refresh") }
func (f *fakeExec) WhoAmI(context.Context) error      { return f.record("whoami") }
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Back(context.Context) error { return f.record("back") }
func (f *fakeExec) Diag(context.Context) error { return f.record("diag") }

func join(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return ":" + strings.Join(args, ",")
}

func TestRunREPL_Dispatch(t *testing.T) {
	out := captureOutput(t)

	input := strings.Join([]string{
		"help",
		"login",
		"help",
		"",
		"verify 123456",
		"home",
		"accounts add",
		"categories delete 4",
		"transactions list limit=5",
		"tx",
		"profile subcategories on",
		"settings",
		"setpassword",
		"connect",
		"refresh",
		"whoami",
		"back",
		"diag",
		"logout",
		"foobar",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(s /)" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{
		"login",
		"verify:123456",
		"dashboard",
		"accounts:add",
		"categories:delete,4",
		"tx:list,limit=5",
		"tx",
		"profile:subcategories,on",
		"settings",
		"setpassword",
		"connect",
		"refresh",
		"whoami",
		"back",
		"diag",
		"logout",
	}, exec.calls)

	got := out.String()
	assert.Contains(t, got, "fintrack (s /)> ")
	assert.Contains(t, got, "Available commands: login, magic")
	assert.Contains(t, got, "Available commands: dashboard, accounts")
	assert.Contains(t, got, "Unknown command: foobar")
	assert.Contains(t, got, "Bye!")
}

func TestRunREPL_StopsAtEOF(t *testing.T) {
	captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("magic")))

	assert.Equal(t, []string{"magic"}, exec.calls)
}

func TestRunREPL_PrintsErrors(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{err: fmt.Errorf("list accounts: %w", client.ErrUnavailable)}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("accounts\nwidget\n")))

	assert.Equal(t, []string{"accounts", "widget"}, exec.calls)
	assert.Contains(t, out.String(), "Error: Server is unavailable")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "boom", userMessage(errors.New("boom")))
	assert.Equal(t, "Server is unavailable, check your connection and try again.", userMessage(client.ErrUnavailable))
}
