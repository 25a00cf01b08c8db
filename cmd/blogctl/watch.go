package main

import (
	"errors"
	"strings"

	"scribe/views"
	"scribe/websocket"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live changes and reprint the list on every post event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			events, err := a.api.Events(ctx, a.api.Token)
			if err != nil {
				return err
			}

			list := views.NewPostListView(a.api)
			list.SetQuery(search)
			if err := list.Load(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printList(out, list.Visible())

			for ev := range events {
				switch {
				case ev.Type == websocket.EventConnected:
					color.New(color.FgGreen).Fprintln(out, "● connected, waiting for changes (Ctrl+C to stop)")
				case strings.HasPrefix(ev.Type, "post_"):
					if err := list.Load(ctx); err != nil {
						cmd.PrintErrln(faint("reload failed: %v", err))
						continue
					}
					color.New(color.FgYellow).Fprintf(out, "\n== %s ==\n", ev.Type)
					printList(out, list.Visible())
				case ev.Type == websocket.EventAuthState && ev.Payload == nil:
					a.session.Set(nil)
					color.New(color.FgYellow).Fprintln(out, "signed out elsewhere")
				}
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.New("event stream closed by server")
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only show matching posts")
	return cmd
}
