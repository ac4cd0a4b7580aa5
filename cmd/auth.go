package main

import (
	"context"
	"fmt"
	"time"

	"github.com/restora-app/restora/internal/session"
	"github.com/urfave/cli/v3"
)

// AuthRegister creates an account and persists the issued session.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	creds := session.Credentials{
		UserName: cmd.String("name"),
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	}

	if err := r.guard.Register(ctx, creds); err != nil {
		return err
	}

	sess, _ := r.guard.Current()
	return r.writePlain("✓ Account created, logged in as %s\n", sess.Email)
}

// AuthLogin exchanges credentials for a session and persists it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := session.Credentials{
		Email:    cmd.String("email"),
		Password: cmd.String("password"),
	}

	if err := r.guard.Login(ctx, creds); err != nil {
		return err
	}

	sess, _ := r.guard.Current()
	return r.writePlain("✓ Logged in as %s\n", sess.Email)
}

// AuthLogout clears the persisted token and the local job cache.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if sess, ok := r.guard.Current(); ok {
		if jobs, err := r.jobCache(); err == nil {
			if err := jobs.Clear(sess.SubjectID); err != nil {
				r.logger.Warnf("failed to clear job cache: %v", err)
			}
		}
	}

	if err := r.guard.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus prints the current session and its validity window.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sess, ok := r.guard.Current()
	if !ok {
		return r.writePlain("✗ Not logged in\n")
	}

	r.writePlain("Subject:  %s\n", sess.SubjectID)
	if sess.DisplayName != "" {
		r.writePlain("Name:     %s\n", sess.DisplayName)
	}
	r.writePlain("Email:    %s\n", sess.Email)
	r.writePlain("Issued:   %s\n", sess.IssuedAt.Local().Format(time.RFC1123))
	r.writePlain("Expires:  %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))

	if sess.Expired(time.Now()) {
		return r.writePlain("State:    %s\n", "expired (log in again)")
	}
	return r.writePlain("State:    %s\n", fmt.Sprintf("valid for %s", time.Until(sess.ExpiresAt).Round(time.Second)))
}
