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

// ListCmd représente la commande 'list'
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all active short links",
	Long:  `List every short link held by the server, in creation order, with the registry's capacity usage.`,
	Run: func(cobraCmd *cobra.Command, args []string) {
		resp, err := httpClient.Get(apiBaseURL() + "/api/v1/links")
		if err != nil {
			log.Fatalf("Failed to reach server (is 'shortlink run-server' running?): %v", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatalf("Failed to read server response: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			fmt.Printf("Error listing links: %s\n", decodeAPIError(respBody))
			os.Exit(1)
		}

		var listing struct {
			Links []struct {
				ShortCode string     `json:"short_code"`
				LongURL   string     `json:"long_url"`
				CreatedAt time.Time  `json:"created_at"`
				ExpiresAt *time.Time `json:"expires_at"`
				Clicks    int        `json:"clicks"`
				Expired   bool       `json:"expired"`
			} `json:"links"`
			Count    int `json:"count"`
			Capacity int `json:"capacity"`
		}
		if err := json.Unmarshal(respBody, &listing); err != nil {
			log.Fatalf("Failed to decode server response: %v", err)
		}

		if listing.Count == 0 {
			fmt.Printf("No links yet (capacity %d).\n", listing.Capacity)
			return
		}

		fmt.Printf("%-10s %-8s %-20s %-10s %s\n", "CODE", "CLICKS", "CREATED", "STATUS", "URL")
		for _, link := range listing.Links {
			status := "active"
			if link.Expired {
				status = "expired"
			} else if link.ExpiresAt != nil {
				status = "expires"
			}
			fmt.Printf("%-10s %-8d %-20s %-10s %s\n",
				link.ShortCode, link.Clicks,
				link.CreatedAt.Format("2006-01-02 15:04:05"), status, link.LongURL)
		}
		fmt.Printf("\n%d/%d links used.\n", listing.Count, listing.Capacity)
	},
}

func init() {
	cmd.RootCmd.AddCommand(ListCmd)
}
