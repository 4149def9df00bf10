package main

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/auth"
)

func cmdLogin(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: langhelper login <email> <password>")
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	user, err := a.client.Authenticate(ctx, args[0], args[1])
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := a.tokens.SetEmail(user.Email); err != nil {
		a.logger.Warn("failed to store email", "error", err)
	}

	fmt.Printf("Logged in as %s ✓\n", displayName(user.Username, user.Email))
	return nil
}

func cmdRegister(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: langhelper register <username> <email> <password>")
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	user, err := a.client.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if err := a.tokens.SetEmail(user.Email); err != nil {
		a.logger.Warn("failed to store email", "error", err)
	}

	fmt.Printf("Account created for %s ✓\n", displayName(user.Username, user.Email))
	if !a.client.IsAuthenticated() {
		fmt.Println("Run 'langhelper login' to start a session.")
	}
	return nil
}

func cmdLogout() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("Logged out ✓")
	return nil
}

func cmdWhoami() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	user, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("ID:       %s\n", user.ID)
	fmt.Printf("Email:    %s\n", user.Email)
	fmt.Printf("Username: %s\n", user.Username)
	return nil
}

func cmdAuth(args []string) error {
	if len(args) < 1 || args[0] != "status" {
		fmt.Println(`Auth commands:

  langhelper auth status   Show stored token details`)
		return nil
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	creds := a.tokens.Credentials()
	if creds.Token == "" {
		fmt.Println("Not logged in")
		return nil
	}

	fmt.Println("Token Status")
	fmt.Println("============")
	if creds.Email != "" {
		fmt.Printf("Email:    %s\n", creds.Email)
	}
	if !creds.SavedAt.IsZero() {
		fmt.Printf("Saved:    %s\n", creds.SavedAt.Local().Format(time.RFC1123))
	}

	info, err := auth.Inspect(creds.Token)
	if err != nil {
		fmt.Println("Claims:   unreadable (opaque token)")
		return nil
	}
	if info.Subject != "" {
		fmt.Printf("Subject:  %s\n", info.Subject)
	}

	now := time.Now()
	switch {
	case info.ExpiresAt.IsZero():
		fmt.Println("Expires:  never")
	case info.Expired(now):
		fmt.Printf("Expires:  %s (expired, run 'langhelper login')\n", info.ExpiresAt.Local().Format(time.RFC1123))
	default:
		fmt.Printf("Expires:  %s (in %s)\n", info.ExpiresAt.Local().Format(time.RFC1123), info.Remaining(now).Round(time.Minute))
	}
	return nil
}

func displayName(username, email string) string {
	if username != "" {
		return username
	}
	return email
}
