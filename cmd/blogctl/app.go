package main

import (
	"errors"
	"os"

	"scribe/client"
	"scribe/models"
	"scribe/views"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	cfg     *viper.Viper
	store   *sessionStore
	api     *client.Client
	session *views.SessionObserver
}

// init restores the saved session, if any, for the chosen server.
func (a *app) init(cmd *cobra.Command) error {
	path := a.cfg.GetString("session_file")
	if path == "" {
		p, err := defaultSessionPath()
		if err != nil {
			return err
		}
		path = p
	}
	a.store = &sessionStore{path: path}

	server := a.cfg.GetString("server")
	a.api = client.New(server)
	a.session = views.NewSessionObserver(nil)

	saved, err := a.store.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if saved != nil && saved.Server == a.api.BaseURL && saved.Token != "" {
		a.api.Token = saved.Token
		a.session.Set(saved.User)
	}

	a.session.Subscribe(func(s *models.Session) {
		a.persist(cmd, s)
	})
	return nil
}

func (a *app) persist(cmd *cobra.Command, s *models.Session) {
	var err error
	if s == nil {
		err = a.store.Clear()
	} else {
		err = a.store.Save(&savedSession{Server: a.api.BaseURL, Token: a.api.Token, User: s})
	}
	if err != nil {
		cmd.PrintErrln(faint("could not update %s: %v", a.store.path, err))
	}
}

func (a *app) requireSession() error {
	if a.session.Current() == nil {
		return errors.New("not logged in, run `blogctl login` first")
	}
	return nil
}
