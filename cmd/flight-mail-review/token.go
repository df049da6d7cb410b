package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"flight-mail-review-go/internal/fetcher"
)

var redirectURL string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain a Gmail refresh token for the gmail mailbox source",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		clientID := os.Getenv("GMAIL_CLIENT_ID")
		clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
		if clientID == "" || clientSecret == "" {
			return fmt.Errorf("please set GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET environment variables")
		}

		config := fetcher.OAuthConfig(clientID, clientSecret, redirectURL)

		authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Go to the following link in your browser: %v\n", authURL)
		fmt.Fprintln(out, "\nAfter authorization, you'll be redirected to a URL. Copy the 'code' parameter from that URL.")

		var authCode string
		fmt.Fprint(out, "\nEnter the authorization code: ")
		if _, err := fmt.Fscan(cmd.InOrStdin(), &authCode); err != nil {
			return fmt.Errorf("read authorization code: %w", err)
		}

		tok, err := config.Exchange(cmd.Context(), authCode)
		if err != nil {
			return fmt.Errorf("unable to retrieve token from web: %w", err)
		}

		fmt.Fprintf(out, "\nRefresh Token: %s\n", tok.RefreshToken)
		fmt.Fprintf(out, "Expiry: %v\n", tok.Expiry)
		fmt.Fprintln(out, "\nAdd the refresh token to your environment variables:")
		fmt.Fprintf(out, "export GMAIL_REFRESH_TOKEN=\"%s\"\n", tok.RefreshToken)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&redirectURL, "redirect-url", "http://localhost:8080/callback", "OAuth redirect URL registered for the client")
	rootCmd.AddCommand(tokenCmd)
}
