package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"

	"jetlag-mailcast/internal/infrastructure/oauth"
	"jetlag-mailcast/pkg/logger"

	"github.com/joho/godotenv"
)

// Obtains a Gmail refresh token with the send scope for GMAIL_REFRESH_TOKEN.
func main() {
	godotenv.Load()
	log := logger.NewLogger("info")

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	gmailOAuth := oauth.NewGmailOAuth(clientID, clientSecret, "", log).
		WithRedirectURL("http://localhost:8090/oauth2callback")

	// Create a random state
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal("Failed to generate state", "error", err)
	}
	state := hex.EncodeToString(buf)

	// Start an HTTP server to handle the OAuth callback
	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		token, err := gmailOAuth.ExchangeCode(context.Background(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		tokenJSON, err := gmailOAuth.TokenToJSON(token)
		if err != nil {
			log.Error("Failed to encode token", "error", err)
		} else {
			fmt.Printf("\n%s\n", tokenJSON)
		}
		fmt.Printf("\nGMAIL_REFRESH_TOKEN=%s\n\n", token.RefreshToken)

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		os.Exit(0)
	})

	fmt.Printf("Open this URL in your browser:\n%s\n", gmailOAuth.GenerateAuthURL(state))

	if err := http.ListenAndServe(":8090", nil); err != nil {
		log.Fatal("Callback server stopped", "error", err)
	}
}
