package cli

import (
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

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short URL",
	Long:  `Get click statistics for the provided short code.`,
	Args:  cobra.ExactArgs(1),
	Run:   runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(cobraCmd *cobra.Command, args []string) {
	shortCode := args[0]

	resp, err := httpClient.Get(apiBaseURL() + "/api/v1/links/" + shortCode + "/stats")
	if err != nil {
		log.Fatalf("Failed to reach server (is 'shortlink run-server' running?): %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read server response: %v", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		fmt.Printf("Error: Short code '%s' not found\n", shortCode)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error retrieving statistics: %s\n", decodeAPIError(respBody))
		os.Exit(1)
	}

	var stats struct {
		ShortCode    string     `json:"short_code"`
		LongURL      string     `json:"long_url"`
		TotalClicks  int        `json:"total_clicks"`
		CreatedAt    time.Time  `json:"created_at"`
		ExpiresAt    *time.Time `json:"expires_at"`
		Expired      bool       `json:"expired"`
		RecentClicks []struct {
			Timestamp time.Time `json:"timestamp"`
			Source    string    `json:"source"`
			Location  string    `json:"location"`
		} `json:"recent_clicks"`
	}
	if err := json.Unmarshal(respBody, &stats); err != nil {
		log.Fatalf("Failed to decode server response: %v", err)
	}

	// Afficher les résultats
	fmt.Printf("Statistiques pour le code court: %s\n", stats.ShortCode)
	fmt.Printf("URL longue: %s\n", stats.LongURL)
	fmt.Printf("Total de clics: %d\n", stats.TotalClicks)
	fmt.Printf("Date de création: %s\n", stats.CreatedAt.Format("2006-01-02 15:04:05"))
	if stats.ExpiresAt != nil {
		status := "active"
		if stats.Expired {
			status = "expirée"
		}
		fmt.Printf("Expiration: %s (%s)\n", stats.ExpiresAt.Format("2006-01-02 15:04:05"), status)
	}
	if len(stats.RecentClicks) > 0 {
		fmt.Println("Derniers clics:")
		for _, click := range stats.RecentClicks {
			fmt.Printf("  %s  source=%s location=%s\n",
				click.Timestamp.Format("2006-01-02 15:04:05"), click.Source, click.Location)
		}
	}
}
