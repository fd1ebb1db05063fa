package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/axellelanca/shortlink/cmd"
	"github.com/spf13/cobra"
)

var (
	longURLFlag  string
	validityFlag int
	codeFlag     string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée une URL courte à partir d'une URL longue.",
	Long: `Cette commande raccourcit une URL longue fournie et affiche le code court généré.

Exemple:
  shortlink create --url="https://www.google.com/search?q=go+lang" --validity=60 --code=golang`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		if longURLFlag == "" {
			fmt.Println("Error: --url flag is required")
			os.Exit(1)
		}

		payload := map[string]interface{}{"long_url": longURLFlag}
		// Only send the optional fields when the caller set them; the server
		// treats absence as "never expires" / "generate a code".
		if cobraCmd.Flags().Changed("validity") {
			payload["validity_minutes"] = validityFlag
		}
		if codeFlag != "" {
			payload["custom_code"] = codeFlag
		}

		body, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("Failed to encode request: %v", err)
		}

		resp, err := httpClient.Post(apiBaseURL()+"/api/v1/links", "application/json", bytes.NewReader(body))
		if err != nil {
			log.Fatalf("Failed to reach server (is 'shortlink run-server' running?): %v", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatalf("Failed to read server response: %v", err)
		}

		if resp.StatusCode != http.StatusCreated {
			fmt.Printf("Error: %s\n", decodeAPIError(respBody))
			os.Exit(1)
		}

		var created struct {
			ShortCode    string     `json:"short_code"`
			FullShortURL string     `json:"full_short_url"`
			ExpiresAt    *time.Time `json:"expires_at"`
		}
		if err := json.Unmarshal(respBody, &created); err != nil {
			log.Fatalf("Failed to decode server response: %v", err)
		}

		fmt.Printf("URL courte créée avec succès:\n")
		fmt.Printf("Code: %s\n", created.ShortCode)
		fmt.Printf("URL complète: %s\n", created.FullShortURL)
		if created.ExpiresAt != nil {
			fmt.Printf("Expire le: %s\n", created.ExpiresAt.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	// Définir les flags pour la commande create.
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().IntVar(&validityFlag, "validity", 0, "Validity period in minutes (omit for no expiry)")
	CreateCmd.Flags().StringVar(&codeFlag, "code", "", "Preferred shortcode (min 3 characters, omit to generate)")

	CreateCmd.MarkFlagRequired("url")

	// Ajouter la commande à RootCmd
	cmd.RootCmd.AddCommand(CreateCmd)
}
