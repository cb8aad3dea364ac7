package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"dzfresh/internal/deezer"
	"dzfresh/internal/server"
	"dzfresh/internal/shared"
	"dzfresh/internal/store"
	"dzfresh/internal/ui"
)

const enrollTimeout = 2 * time.Minute

// Enroll authorizes a Deezer account and stores its token under a
// profile name.
//
// Opens the browser to Deezer's consent page, catches the redirect on a
// local HTTP server, exchanges the code, verifies the token, and writes
// the credential entries.
func (r *Runner) Enroll(ctx context.Context, cmd *cli.Command) error {
	config := r.resolveConfig(cmd)

	name := strings.TrimSpace(cmd.String("name"))
	if name == "" {
		var err error
		if name, err = ui.PromptName(ctx); err != nil {
			return err
		}
	}

	if config.Deezer.AppID == "" || config.Deezer.Secret == "" {
		return fmt.Errorf("%w: set deezer.app_id and deezer.secret in the config file or export DEEZER_APP_ID / DEEZER_SECRET_TOKEN", shared.ErrMissingCredentials)
	}

	env := store.NewEnv(config.Store.EnvPath)

	if token := env.Token(name); token != "" {
		if user := r.verifyToken(ctx, token); user != nil {
			r.writePlain("✓ %s is already enrolled as %s\n", name, user.Name)
			return nil
		}
		r.writePlainln("⚠ Stored token for %s no longer works. Starting re-enrollment...", name)
	}

	oauth := deezer.NewOAuth(config.Deezer.AppID, config.Deezer.Secret, config.Server.RedirectURI(), "", r.httpClient)

	token, err := r.doEnrollOAuth(ctx, config, oauth)
	if err != nil {
		return err
	}

	user := r.verifyToken(ctx, token)
	if user == nil {
		return fmt.Errorf("%w: token did not resolve an identity", shared.ErrAuthFailed)
	}

	if err := env.Enroll(name, token); err != nil {
		return err
	}
	r.logger.Info("profile enrolled", "profile", shared.FoldName(name), "user_id", user.ID)

	r.writePlainln("✓ Enrolled %s (Deezer account: %s)", name, user.Name)
	r.writePlain("✓ Credentials saved to %s\n\n", env.Path())
	r.writePlain("Store these as CI secrets to run headless:\n")
	r.writePlain("  %s\n", store.TokenKey(name))
	r.writePlain("  %s\n\n", store.PlaylistKey(name))
	r.writePlain("You can now run: dzfresh sync\n")

	return nil
}

// doEnrollOAuth executes the authorization-code flow with a local HTTP
// server catching the redirect.
func (r *Runner) doEnrollOAuth(ctx context.Context, config *shared.Config, oauth *deezer.OAuth) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauth.AuthURL(state)
	handler := server.NewCallbackHandler(oauth, state, config.Server.CallbackPath)
	router := server.NewBasicRouter()
	router.Handler(handler)

	httpServer := &http.Server{
		Addr:    config.Server.Addr(),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting enrollment callback server at %v", config.Server.Addr())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Deezer authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(enrollTimeout)
	defer timeout.Stop()

	var result server.CallbackResult
	var waitErr error

	select {
	case result = <-handler.Result():
		// Got result from callback
	case err := <-serverErrors:
		waitErr = fmt.Errorf("callback server error: %w", err)
	case <-ctx.Done():
		waitErr = ctx.Err()
	case <-timeout.C:
		waitErr = fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down callback server", "error", err)
	}

	if waitErr != nil {
		return "", waitErr
	}
	if result.Error() != nil {
		return "", fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == "" {
		return "", fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// verifyToken resolves the identity behind a token, or nil when the
// service rejects it.
func (r *Runner) verifyToken(ctx context.Context, token string) *deezer.User {
	client := deezer.NewClient(token, "", r.httpClient)

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := client.Me(cctx)
	if err != nil {
		r.logger.Debug("token verification failed", "error", err)
		return nil
	}
	return user
}
