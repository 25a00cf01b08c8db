// Command vapidgen prints a fresh VAPID key pair for web push.
package main

import (
	"fmt"
	"os"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	var email string
	var envOnly bool

	cmd := &cobra.Command{
		Use:   "vapidgen",
		Short: "Generate a VAPID key pair for web push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("failed to generate VAPID keys: %w", err)
			}

			out := cmd.OutOrStdout()
			if !envOnly {
				bold := color.New(color.Bold)
				fmt.Fprintln(out, "========================================")
				bold.Fprintln(out, "VAPID PUBLIC KEY:")
				fmt.Fprintln(out, publicKey)
				fmt.Fprintln(out)
				bold.Fprintln(out, "VAPID PRIVATE KEY:")
				fmt.Fprintln(out, privateKey)
				fmt.Fprintln(out, "========================================")
				color.New(color.FgYellow).Fprintln(out, "Copy these and add them to your .env file:")
			}
			fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", publicKey)
			fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", privateKey)
			fmt.Fprintf(out, "VAPID_EMAIL=%s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "admin@example.com", "contact address sent to push services")
	cmd.Flags().BoolVar(&envOnly, "env", false, "print only .env lines")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
