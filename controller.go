package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// Controller owns one grading session end to end. Concurrent sessions
// each get their own Controller; only the policy cache and the
// database handle are shared, both safe for that.
type Controller struct {
	cfg       Config
	store     *PolicyStore
	caller    ModelCaller
	lexicon   *ComplianceLexicon
	db        *sql.DB
	sessionID string

	session    *SessionState
	transcript *Transcript
	assistant  *Assistant
	usage      LLMUsage
}

func NewController(cfg Config, store *PolicyStore, caller ModelCaller, lexicon *ComplianceLexicon, db *sql.DB) *Controller {
	return &Controller{
		cfg:        cfg,
		store:      store,
		caller:     caller,
		lexicon:    lexicon,
		db:         db,
		sessionID:  fmt.Sprintf("s-%d", time.Now().UnixNano()),
		session:    NewSessionState(cfg.DefaultStrictness, cfg.HistoryLimit),
		transcript: NewTranscript(cfg.TranscriptLimit),
		assistant:  NewAssistant(caller, cfg),
	}
}

// SelectProduct validates that the product's policy folder exists,
// warms the policy cache, and clears prior grading context.
func (c *Controller) SelectProduct(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "product", Detail: "must not be empty"}
	}
	if _, err := c.store.Get(name); err != nil {
		return err
	}
	return c.session.SetProduct(name)
}

// SetStrictness validates the range and clears prior grading context.
func (c *Controller) SetStrictness(n int) error {
	return c.session.SetStrictness(n)
}

// RunComplianceCheck grades marketing text against the selected
// product's policies. On partial model output the returned result is
// still valid and the error is a *MalformedResponseError listing the
// rejected evaluations.
func (c *Controller) RunComplianceCheck(ctx context.Context, text string) (GradingResult, error) {
	if c.session.Product == "" {
		return GradingResult{}, &ValidationError{Field: "product", Detail: "no product selected"}
	}
	set, err := c.store.Get(c.session.Product)
	if err != nil {
		return GradingResult{}, err
	}
	prompt, err := BuildCompliancePrompt(text, set, c.session.Strictness)
	if err != nil {
		return GradingResult{}, err
	}

	log.Printf("llm compliance-check product=%s strictness=%d policies=%d", c.session.Product, c.session.Strictness, set.Len())
	raw, usage, err := callModel(ctx, c.caller, c.cfg, graderSystemPrompt, prompt)
	c.usage.Add(usage)
	if err != nil {
		return GradingResult{}, err
	}

	evals, summary, rejects, err := parseGradingResponse(raw)
	if err != nil {
		return GradingResult{}, err
	}
	evals = applyLexiconOverrides(text, evals, c.lexicon)
	result := ScoreEvaluations(evals, summary)

	c.session.Update(result)
	c.persistRun(result)

	if len(rejects) > 0 {
		return result, &MalformedResponseError{
			Detail:  fmt.Sprintf("%d evaluation(s) rejected", len(rejects)),
			Rejects: rejects,
		}
	}
	return result, nil
}

// Chat answers a follow-up question about the latest grading result.
func (c *Controller) Chat(ctx context.Context, message string) (string, error) {
	reply, usage, err := c.assistant.Reply(ctx, message, c.session, c.transcript)
	c.usage.Add(usage)
	if err != nil {
		return "", err
	}
	c.persistChat(strings.TrimSpace(message), reply)
	return reply, nil
}

// Session exposes the session state read-only for rendering.
func (c *Controller) Session() *SessionState {
	return c.session
}

func (c *Controller) Usage() LLMUsage {
	return c.usage
}

// Persistence failures are logged, never surfaced: the grading result
// already stands on its own.
func (c *Controller) persistRun(result GradingResult) {
	if c.db == nil {
		return
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		log.Printf("grading run marshal error: %v", err)
		return
	}
	run := GradingRun{
		Product:        c.session.Product,
		Strictness:     c.session.Strictness,
		Scores:         result.Scores,
		FlaggedCount:   len(result.FlaggedEvaluations),
		MatchedCount:   len(result.ApprovedMatches),
		OverallSummary: result.OverallSummary,
		ResultJSON:     string(resultJSON),
		LLMModel:       c.cfg.LLMModel,
	}
	if err := InsertGradingRun(c.db, run); err != nil {
		log.Printf("grading run persist error: %v", err)
	}
}

func (c *Controller) persistChat(userText, reply string) {
	if c.db == nil {
		return
	}
	if err := InsertChatMessage(c.db, c.sessionID, "user", userText); err != nil {
		log.Printf("chat persist error: %v", err)
	}
	if err := InsertChatMessage(c.db, c.sessionID, "assistant", reply); err != nil {
		log.Printf("chat persist error: %v", err)
	}
}
