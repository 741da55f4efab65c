package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ReloadResult tracks the outcome of one reload pass.
type ReloadResult struct {
	Products int
	Reloaded int
	Errors   []string
}

// ReloadPolicies re-reads policy tables for every product loaded so
// far, so a long-running process picks up document edits. Failures
// leave the previous tables in place.
func ReloadPolicies(store *PolicyStore) ReloadResult {
	products := store.CachedProducts()
	result := ReloadResult{Products: len(products)}
	for _, product := range products {
		if _, err := store.Reload(product); err != nil {
			log.Printf("policy reload error product=%s err=%v", product, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", product, err))
			continue
		}
		result.Reloaded++
	}
	return result
}

// FormatReloadSummary returns a human-readable summary of a ReloadResult.
func FormatReloadSummary(result ReloadResult) string {
	if result.Products == 0 {
		return "no products loaded yet, nothing to reload"
	}
	msg := fmt.Sprintf("reloaded %d of %d product(s)", result.Reloaded, result.Products)
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("; errors: %s", strings.Join(result.Errors, "; "))
	}
	return msg
}

// StartPolicyReloadScheduler starts a cron-based scheduler that
// periodically reloads cached policy tables. The schedule is a
// standard 5-field cron expression (minute hour day-of-month month
// day-of-week). Examples: "0 * * * *" (hourly), "0 6 * * 1-5"
// (weekdays 6am).
func StartPolicyReloadScheduler(cfg Config, store *PolicyStore) {
	schedule := strings.TrimSpace(cfg.PolicyReloadSchedule)
	if schedule == "" {
		log.Println("Policy auto-reload disabled (policy_reload_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid policy_reload_schedule '%s': %v, auto-reload disabled", schedule, err)
		return
	}
	log.Printf("Policy auto-reload scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			log.Printf("Next policy reload at %s", next.Format("Mon Jan 2 15:04"))
			time.Sleep(next.Sub(now))

			result := ReloadPolicies(store)
			log.Printf("Policy reload complete: %s", FormatReloadSummary(result))
		}
	}()
}
