package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	MagicLink(ctx context.Context) error
	Verify(ctx context.Context, code string) error
	Widget(ctx context.Context) error
	Register(ctx context.Context) error
	Dashboard(ctx context.Context) error
	Accounts(ctx context.Context, args []string) error
	Categories(ctx context.Context, args []string) error
	Transactions(ctx context.Context, args []string) error
	Profile(ctx context.Context, args []string) error
	Settings(ctx context.Context) error
	SetPassword(ctx context.Context) error
	Connect(ctx context.Context) error
	Refresh(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
	Back(ctx context.Context) error
	Diag(ctx context.Context) error
}

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit" or "quit". The first token is the command, the rest are its
// arguments.
//
//	Signed out:
//	  - login          sign in with email or phone and password
//	  - magic          request a one-time code via Telegram
//	  - verify [code]  exchange a one-time code
//	  - widget         sign in with a login widget payload
//	  - register       create an account
//
//	Signed in:
//	  - dashboard      summary and recent transactions
//	  - accounts       list | add | delete <id>
//	  - categories     list | add | delete <id>
//	  - tx             list [key=value...] | add | delete <id>
//	  - profile        show | subcategories on|off
//	  - settings       enabled sign-in methods
//	  - setpassword    enable password login
//	  - connect        link a Telegram account
//	  - refresh        reload the user from the server
//	  - logout         forget the credential
//
// Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("fintrack %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: dashboard, accounts, categories, tx, profile, settings, setpassword, connect, refresh, whoami, logout, back, diag, exit")
			} else {
				printlnFn("Available commands: login, magic, verify, widget, register, whoami, back, diag, exit")
			}

		case "login":
			cmdErr = a.Login(ctx)

		case "magic":
			cmdErr = a.MagicLink(ctx)

		case "verify":
			var code string
			if len(args) > 0 {
				code = args[0]
			}
			cmdErr = a.Verify(ctx, code)

		case "widget":
			cmdErr = a.Widget(ctx)

		case "register":
			cmdErr = a.Register(ctx)

		case "dashboard", "home":
			cmdErr = a.Dashboard(ctx)

		case "accounts":
			cmdErr = a.Accounts(ctx, args)

		case "categories":
			cmdErr = a.Categories(ctx, args)

		case "tx", "transactions":
			cmdErr = a.Transactions(ctx, args)

		case "profile":
			cmdErr = a.Profile(ctx, args)

		case "settings":
			cmdErr = a.Settings(ctx)

		case "setpassword":
			cmdErr = a.SetPassword(ctx)

		case "connect":
			cmdErr = a.Connect(ctx)

		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "back":
			cmdErr = a.Back(ctx)

		case "diag":
			cmdErr = a.Diag(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", userMessage(cmdErr))
		}
	}
}

// userMessage turns a command error into a line for the user.
func userMessage(err error) string {
	if errors.Is(err, client.ErrUnavailable) {
		return "Server is unavailable, check your connection and try again."
	}
	return services.Message(err, err.Error())
}
