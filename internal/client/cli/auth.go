package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/client/models"
	"github.com/dmitrijs2005/fintrack/internal/client/routes"
	"github.com/dmitrijs2005/fintrack/internal/client/tokenstore"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

const minPasswordLength = 6

var (
	errContactRequired  = errors.New("enter an email or a phone number")
	errPasswordTooShort = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	errPasswordMismatch = errors.New("passwords do not match")
	errMissingInput     = errors.New("email/phone and password are required")
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getMultiline  = GetMultiline
)

// validateRegistration checks the register form before anything is sent.
func validateRegistration(email, phone string, password, confirm []byte) error {
	switch {
	case email == "" && phone == "":
		return errContactRequired
	case len(password) < minPasswordLength:
		return errPasswordTooShort
	case string(password) != string(confirm):
		return errPasswordMismatch
	}
	return nil
}

// readNewPassword prompts for a password and its confirmation. Both slices
// must be wiped by the caller.
func readNewPassword() (password, confirm []byte, err error) {
	password, err = getPassword(os.Stdout, "Enter password")
	if err != nil {
		return nil, nil, err
	}
	confirm, err = getPassword(os.Stdout, "Confirm password")
	if err != nil {
		common.WipeByteArray(password)
		return nil, nil, err
	}
	return password, confirm, nil
}

// Login prompts for an email or phone and a password.
func (a *App) Login(ctx context.Context) error {
	return a.visit(ctx, client.LoginView, func(ctx context.Context) error {

		identifier, err := getSimpleText(a.reader, "Enter email or phone", os.Stdout)
		if err != nil {
			return err
		}

		password, err := getPassword(os.Stdout, "Enter password")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)

		if identifier == "" || len(password) == 0 {
			return errMissingInput
		}

		if err := a.session.Login(ctx, identifier, string(password)); err != nil {
			return err
		}
		return a.afterSignIn(ctx)
	})
}

// MagicLink asks the server to send a one-time login code to the user's
// messenger account.
func (a *App) MagicLink(ctx context.Context) error {
	return a.visit(ctx, client.LoginView, func(ctx context.Context) error {

		username, err := getSimpleText(a.reader, "Enter your Telegram username", os.Stdout)
		if err != nil {
			return err
		}

		resp, err := a.session.RequestMagicLink(ctx, username)
		if err != nil {
			return err
		}

		msg := resp.Message
		if resp.ExpiresIn > 0 {
			msg = fmt.Sprintf("%s (valid for %s)", msg, time.Duration(resp.ExpiresIn)*time.Second)
		}
		printlnFn(msg)
		printlnFn("Run 'verify <code>' with the code you received.")
		return nil
	})
}

// Verify exchanges a one-time code for a session. Without code it prompts.
func (a *App) Verify(ctx context.Context, code string) error {
	return a.visit(ctx, client.VerifyView, func(ctx context.Context) error {

		if code == "" {
			var err error
			if code, err = getSimpleText(a.reader, "Enter the login code", os.Stdout); err != nil {
				return err
			}
		}

		if err := a.session.VerifyMagicLink(ctx, code); err != nil {
			return err
		}
		return a.afterSignIn(ctx)
	})
}

// Widget signs in with a pasted login widget payload.
func (a *App) Widget(ctx context.Context) error {
	return a.visit(ctx, client.LoginView, func(ctx context.Context) error {

		payload, err := a.readWidgetPayload()
		if err != nil {
			return err
		}

		if err := a.session.LoginWithWidget(ctx, payload); err != nil {
			return err
		}
		return a.afterSignIn(ctx)
	})
}

func (a *App) readWidgetPayload() (models.WidgetPayload, error) {
	var p models.WidgetPayload

	raw, err := getMultiline(a.reader, "Paste the login widget payload (JSON)", os.Stdout)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("invalid widget payload: %w", err)
	}
	return p, nil
}

// Register prompts for contact details and a confirmed password.
func (a *App) Register(ctx context.Context) error {
	return a.visit(ctx, client.RegisterView, func(ctx context.Context) error {

		email, err := getSimpleText(a.reader, "Enter email (optional if phone given)", os.Stdout)
		if err != nil {
			return err
		}
		phone, err := getSimpleText(a.reader, "Enter phone (optional if email given)", os.Stdout)
		if err != nil {
			return err
		}

		password, confirm, err := readNewPassword()
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)
		defer common.WipeByteArray(confirm)

		if err := validateRegistration(email, phone, password, confirm); err != nil {
			return err
		}

		req := models.RegisterRequest{Email: email, Phone: phone, Password: string(password)}
		if err := a.session.Register(ctx, req); err != nil {
			return err
		}
		return a.afterSignIn(ctx)
	})
}

// Logout forgets the credential on this machine.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.returnTo = ""
	a.nav.Navigate(client.LoginView)
	printlnFn("Signed out.")
	return nil
}

// WhoAmI prints the session state.
func (a *App) WhoAmI(ctx context.Context) error {
	s := a.session.State()
	if !s.IsAuthenticated() {
		printlnFn("Status:", s.Status)
		return nil
	}

	u := s.User
	printlnFn("Signed in as", u.DisplayName(), fmt.Sprintf("(id %d)", u.ID))
	printlnFn("Password login:", yesNo(u.HasPassword))
	if u.TelegramUsername != nil {
		printlnFn("Telegram: @" + *u.TelegramUsername)
	} else {
		printlnFn("Telegram: not connected")
	}
	if claims, ok := tokenstore.Inspect(s.Credential); ok && !claims.ExpiresAt.IsZero() {
		printlnFn("Session valid until", claims.ExpiresAt.Local().Format(time.DateTime))
	}
	if st, ok := a.store.(savedAtReporter); ok {
		at, found, err := st.SavedAt(ctx)
		switch {
		case err != nil:
			a.log.Warn(ctx, "read credential timestamp", "error", err)
		case found:
			printlnFn("Credential saved at", at.Local().Format(time.DateTime))
		}
	}
	return nil
}

// savedAtReporter is implemented by stores that record when the credential
// was written.
type savedAtReporter interface {
	SavedAt(ctx context.Context) (time.Time, bool, error)
}

// Refresh re-reads the current user from the server.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.session.RefreshUser(ctx); err != nil {
		return err
	}
	return a.WhoAmI(ctx)
}

// SetPassword enables password login for accounts created through the
// messenger.
func (a *App) SetPassword(ctx context.Context) error {
	return a.visit(ctx, routes.SettingsView, func(ctx context.Context) error {

		u := a.session.State().User
		if u.HasPassword {
			printlnFn("Password login is already enabled.")
			return nil
		}

		var email, phone string
		if u.Email == nil && u.Phone == nil {
			var err error
			if email, err = getSimpleText(a.reader, "Enter email (optional if phone given)", os.Stdout); err != nil {
				return err
			}
			if phone, err = getSimpleText(a.reader, "Enter phone (optional if email given)", os.Stdout); err != nil {
				return err
			}
		} else {
			email, phone = deref(u.Email), deref(u.Phone)
		}

		password, confirm, err := readNewPassword()
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)
		defer common.WipeByteArray(confirm)

		if err := validateRegistration(email, phone, password, confirm); err != nil {
			return err
		}

		req := models.SetPasswordRequest{Email: email, Phone: phone, Password: string(password)}
		if err := a.session.SetPassword(ctx, req); err != nil {
			return err
		}
		printlnFn("Password login enabled.")
		return nil
	})
}

// Connect links a messenger account to the signed-in user.
func (a *App) Connect(ctx context.Context) error {
	return a.visit(ctx, routes.SettingsView, func(ctx context.Context) error {

		payload, err := a.readWidgetPayload()
		if err != nil {
			return err
		}
		if err := a.session.ConnectWidgetIdentity(ctx, payload); err != nil {
			return err
		}
		printlnFn("Telegram account connected.")
		return nil
	})
}

func (a *App) renderSettings(ctx context.Context) error {
	u := a.session.State().User
	printlnFn("Password login:", yesNo(u.HasPassword), "(setpassword)")
	if u.TelegramUsername != nil {
		printlnFn("Telegram: @" + *u.TelegramUsername)
	} else {
		printlnFn("Telegram: not connected (connect)")
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
