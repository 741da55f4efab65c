package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	var lexicon *ComplianceLexicon
	if cfg.LexiconPath != "" {
		lexicon, err = LoadComplianceLexicon(cfg.LexiconPath)
		if err != nil {
			log.Fatalf("Failed to load lexicon: %v", err)
		}
	}

	store := NewPolicyStore(cfg.PolicyDocsDir)
	StartPolicyReloadScheduler(cfg, store)

	controller := NewController(cfg, store, newAnthropicCaller(cfg), lexicon, db)

	log.Println("Starting marketing compliance grader...")
	runCommandLoop(controller, os.Stdin, os.Stdout)
}

func runCommandLoop(c *Controller, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(out, "Commands: product <name> | strictness <1-10> | check <text> | chat <message> | stats | quit")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch cmd {
		case "product":
			if err := c.SelectProduct(rest); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintf(out, "Product set to %q. Prior results cleared.\n", rest)

		case "strictness":
			n, err := strconv.Atoi(rest)
			if err != nil {
				fmt.Fprintln(out, "Error: strictness must be a number")
				continue
			}
			if err := c.SetStrictness(n); err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintf(out, "Strictness set to %d. Prior results cleared.\n", n)

		case "check":
			result, err := c.RunComplianceCheck(context.Background(), rest)
			if err != nil {
				// Only a partial result backed by real evaluations is
				// worth rendering; anything else is a hard failure.
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) || !result.Graded() {
					fmt.Fprintln(out, "Error:", err)
					continue
				}
				fmt.Fprintf(out, "Warning: %v\n", malformed)
			}
			fmt.Fprint(out, renderResultContext(result))
			for _, fix := range SuggestFixes(result) {
				fmt.Fprintln(out, "- "+fix)
			}

		case "chat":
			reply, err := c.Chat(context.Background(), rest)
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				continue
			}
			fmt.Fprintln(out, reply)

		case "stats":
			printStats(c, out)

		case "quit", "exit":
			log.Printf("llm usage total tokens_in=%d tokens_out=%d", c.Usage().InputTokens, c.Usage().OutputTokens)
			return

		default:
			fmt.Fprintln(out, "Unknown command:", cmd)
		}
	}
}

func printStats(c *Controller, out io.Writer) {
	if c.Session().Product == "" {
		fmt.Fprintln(out, "No product selected.")
		return
	}
	stats, err := GetGradingStats(c.db, c.Session().Product, time.Now().AddDate(0, -3, 0))
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return
	}
	fmt.Fprintf(out, "Runs (last 3 months): %d\n", stats.TotalRuns)
	fmt.Fprintf(out, "Average scores: approved=%.1f fda=%.1f ftc=%.1f\n", stats.AvgApproved, stats.AvgFDA, stats.AvgFTC)
	fmt.Fprintf(out, "Regulatory buckets: <50=%d 50-70=%d 70-85=%d 85+=%d\n",
		stats.BucketBelow50, stats.Bucket50to70, stats.Bucket70to85, stats.Bucket85Plus)
}
