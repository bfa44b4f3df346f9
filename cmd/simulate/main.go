// simulate fires concurrent booking requests for one provider slot to check
// the uniqueness guarantee end to end: no matter how many requesters race,
// exactly one booking may land on a given (provider, date) pair.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agendaapp/agenda-api/internal/api"
)

type SimConfig struct {
	APIBaseURL string
	JWTSecret  string
	ProviderID int64
	Requesters int64
	Slot       time.Time
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{}
	var slotStr string
	flag.StringVar(&cfg.APIBaseURL, "api", "http://localhost:8080", "API base URL")
	flag.Int64Var(&cfg.ProviderID, "provider", 1, "provider user id to book")
	flag.Int64Var(&cfg.Requesters, "requesters", 50, "number of concurrent requesters")
	flag.StringVar(&slotStr, "slot", "", "slot to fight over (RFC3339, defaults to tomorrow 14:00 UTC)")
	flag.Parse()

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	if slotStr != "" {
		slot, err := time.Parse(time.RFC3339, slotStr)
		if err != nil {
			log.Fatalf("invalid -slot: %v", err)
		}
		cfg.Slot = slot
	} else {
		tomorrow := time.Now().UTC().AddDate(0, 0, 1)
		cfg.Slot = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 14, 0, 0, 0, time.UTC)
	}

	log.Printf("racing %d requesters for provider=%d slot=%s", cfg.Requesters, cfg.ProviderID, cfg.Slot.Format(time.RFC3339))

	var success, conflict, other int64
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 10 * time.Second}

	// Requester ids start after the provider pool seeded by cmd/seed.
	for i := int64(0); i < cfg.Requesters; i++ {
		requesterID := cfg.ProviderID + 100 + i

		wg.Add(1)
		go func() {
			defer wg.Done()

			status, err := book(client, cfg, requesterID)
			switch {
			case err != nil:
				atomic.AddInt64(&other, 1)
				log.Printf("requester %d: %v", requesterID, err)
			case status == http.StatusCreated:
				atomic.AddInt64(&success, 1)
			case status == http.StatusBadRequest:
				atomic.AddInt64(&conflict, 1)
			default:
				atomic.AddInt64(&other, 1)
				log.Printf("requester %d: unexpected status %d", requesterID, status)
			}
		}()
	}

	wg.Wait()

	fmt.Printf("created=%d conflicts=%d other=%d\n", success, conflict, other)
	if success != 1 {
		log.Fatalf("expected exactly 1 created booking, got %d", success)
	}
	log.Println("slot uniqueness held")
}

func book(client *http.Client, cfg SimConfig, requesterID int64) (int, error) {
	token, err := api.MakeToken(requesterID, cfg.JWTSecret, 15*time.Minute)
	if err != nil {
		return 0, fmt.Errorf("mint token: %w", err)
	}

	body, err := json.Marshal(api.CreateAppointmentRequest{
		ProviderID: cfg.ProviderID,
		Date:       cfg.Slot.Format(time.RFC3339),
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, cfg.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
