package cmd

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"loyalty/internal/client/api"
	"loyalty/internal/client/credstore"
	"loyalty/internal/client/session"
	"loyalty/internal/client/vault"
)

var errNotLoggedIn = errors.New("not logged in; run `loyalty auth login` first")

// cliSession is a running session.Store for the duration of one command.
type cliSession struct {
	store *session.Store
}

func (o *options) newLogger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	lvl, err := logrus.ParseLevel(o.cfg.LogLevel)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// openSession unseals the stored token and starts a Store over it. The caller
// must Close the returned session.
func (o *options) openSession(cmd *cobra.Command) (*cliSession, error) {
	logger := o.newLogger(cmd)
	key, err := vault.LoadOrGenerate(o.cfg.VaultKeyPath)
	if err != nil {
		return nil, err
	}
	creds, err := credstore.OpenFile(o.cfg.TokenPath, key, logger)
	if err != nil {
		return nil, err
	}
	tokens := &api.TokenHolder{}
	client := api.New(api.Config{BaseURL: o.cfg.ServerURL, Timeout: o.cfg.HTTPTimeout}, tokens.Get, logger)
	store := session.New(session.Options{
		API:          client,
		Credentials:  creds,
		Tokens:       tokens,
		Logger:       logger,
		FetchTimeout: o.cfg.HTTPTimeout,
	})
	return &cliSession{store: store}, nil
}

func (c *cliSession) Close() { c.store.Close() }

// ready waits until the store has seen the stored token.
func (c *cliSession) ready(ctx context.Context) (session.State, error) {
	return c.store.WaitFor(ctx, session.State.Ready)
}

// requireLogin is ready plus a check that there is a session to act for.
func (c *cliSession) requireLogin(ctx context.Context) (session.State, error) {
	st, err := c.ready(ctx)
	if err != nil {
		return st, err
	}
	if !st.IsLoggedIn {
		return st, errNotLoggedIn
	}
	return st, nil
}

// view settles chs for display. Logged in, the login fan-out already covers
// them. Logged out, public channels are fetched on demand.
func (c *cliSession) view(ctx context.Context, public bool, chs ...session.Channel) (session.State, error) {
	st, err := c.ready(ctx)
	if err != nil {
		return st, err
	}
	if st.IsLoggedIn {
		return c.store.WaitFor(ctx, func(s session.State) bool { return s.Settled(chs...) })
	}
	if !public {
		return st, errNotLoggedIn
	}
	c.store.Refresh(chs...)
	return c.refreshed(ctx, st, chs...)
}

// refreshed waits for a refresh of every channel in chs issued after before
// to settle.
func (c *cliSession) refreshed(ctx context.Context, before session.State, chs ...session.Channel) (session.State, error) {
	return c.store.WaitFor(ctx, func(s session.State) bool {
		for _, ch := range chs {
			if s.Generation(ch) <= before.Generation(ch) {
				return false
			}
		}
		return s.Settled(chs...)
	})
}

// run opens a session, bounds fn by the settle timeout and closes the
// session afterwards.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, s *cliSession) error) error {
	s, err := o.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), o.settleTimeout())
	defer cancel()
	return fn(ctx, s)
}
