// Command blogctl is a terminal client for a scribe server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BLOGCTL")
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:8080")

	a := &app{cfg: v}
	root := &cobra.Command{
		Use:           "blogctl",
		Short:         "Read and write posts on a scribe server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().String("server", "", "server base URL (env BLOGCTL_SERVER)")
	root.PersistentFlags().String("session-file", "", "where the session is kept (default $XDG_CONFIG_HOME/blogctl/session.json)")
	_ = v.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = v.BindPFlag("session_file", root.PersistentFlags().Lookup("session-file"))

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.resetPasswordCmd(),
		a.listCmd(),
		a.showCmd(),
		a.createCmd(),
		a.editCmd(),
		a.likeCmd(),
		a.commentCmd(),
		a.deleteCmd(),
		a.watchCmd(),
	)
	return root
}

func success(cmd *cobra.Command, format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ "+format+"\n", args...)
}

func faint(format string, args ...interface{}) string {
	return color.New(color.Faint).Sprintf(format, args...)
}

func requireFlag(name, value string) error {
	if value == "" {
		return fmt.Errorf("--%s is required", name)
	}
	return nil
}
