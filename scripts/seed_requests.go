// seed_requests.go — standalone script to parse a TODO.md and submit each open
// item as a task request memo through the ledger gateway.
//
// Usage:
//
//	go run scripts/seed_requests.go -todo /path/to/TODO.md -gateway http://localhost:8800 -account rUserAccount -node rNodeAccount
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/womboai/pft-nft-node/internal/memo"
)

type txPayload struct {
	ID          string    `json:"id"`
	Account     string    `json:"account"`
	Destination string    `json:"destination"`
	Memo        memo.Memo `json:"memo"`
	Amount      float64   `json:"amount"`
}

func main() {
	todoPath := flag.String("todo", "TODO.md", "path to TODO.md file")
	gatewayURL := flag.String("gateway", "http://localhost:8800", "ledger gateway base URL")
	account := flag.String("account", "", "requesting user account")
	node := flag.String("node", "", "task node account")
	name := flag.String("name", "seed", "memo sender display name")
	dryRun := flag.Bool("dry-run", false, "print requests without posting")
	flag.Parse()

	if *account == "" || *node == "" {
		log.Fatal("-account and -node are required")
	}

	f, err := os.Open(*todoPath)
	if err != nil {
		log.Fatalf("open TODO.md: %v", err)
	}
	defer f.Close()

	var requests []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		// Only open items become requests; done items have nothing to propose.
		if !strings.HasPrefix(trimmed, "- [ ] ") {
			continue
		}
		text := strings.TrimPrefix(trimmed, "- [ ] ")
		if text != "" {
			requests = append(requests, text)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("scan TODO.md: %v", err)
	}

	log.Printf("parsed %d open items from %s", len(requests), *todoPath)

	if *dryRun {
		for i, text := range requests {
			fmt.Printf("[%d] %s\n", i+1, text)
		}
		return
	}

	client := &http.Client{Timeout: 30 * time.Second}
	created, skipped := 0, 0
	for _, text := range requests {
		taskID := memo.NewTaskID(time.Now())
		payload := txPayload{
			ID:          uuid.New().String(),
			Account:     *account,
			Destination: *node,
			Memo:        memo.Build(taskID, memo.KindRequest, text, *name),
			Amount:      1,
		}
		body, _ := json.Marshal(payload)

		req, err := http.NewRequest("POST", *gatewayURL+"/api/v1/transactions", bytes.NewReader(body))
		if err != nil {
			log.Printf("skip %q: %v", text, err)
			skipped++
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", payload.ID)

		resp, err := client.Do(req)
		if err != nil {
			log.Printf("skip %q: %v", text, err)
			skipped++
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 300 {
			created++
			log.Printf("requested %q as %s", text, taskID)
		} else {
			log.Printf("skip %q: status %d", text, resp.StatusCode)
			skipped++
		}

		time.Sleep(50 * time.Millisecond)
	}

	log.Printf("done: %d requested, %d skipped", created, skipped)
}
