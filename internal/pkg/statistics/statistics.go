package statistics

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hauswerk/hauswerk/internal/pkg/cache"
)

const (
	cacheKeyWebhookOutcome = "statistics:webhooks:%s:%s"    // event type, outcome
	cacheKeyWebhookDaily   = "statistics:webhooks:daily:%s" // date YYYY-MM-DD
)

// RecordWebhookOutcome bumps the ingestion counters for one pipeline run.
// Counters are operational telemetry only, so failures are logged and
// dropped; the durable ledger is the source of truth.
func RecordWebhookOutcome(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	key := fmt.Sprintf(cacheKeyWebhookOutcome, eventType, outcome)
	if _, err := cache.Incr(key); err != nil {
		log.Printf("statistics: failed to increment %s: %v", key, err)
		return
	}

	daily := fmt.Sprintf(cacheKeyWebhookDaily, time.Now().Format("2006-01-02"))
	if _, err := cache.Incr(daily); err != nil {
		log.Printf("statistics: failed to increment %s: %v", daily, err)
	}
}

// WebhookCounters returns all ingestion counters keyed by "<type>:<outcome>".
func WebhookCounters() (map[string]int, error) {
	keys, err := cache.Keys("statistics:webhooks:*")
	if err != nil {
		return nil, err
	}

	counters := make(map[string]int, len(keys))
	for _, key := range keys {
		val, err := cache.GetInt(key)
		if err != nil {
			continue
		}
		counters[strings.TrimPrefix(key, "statistics:webhooks:")] = val
	}
	return counters, nil
}
