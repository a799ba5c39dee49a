package icp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leadpilot/icpflow/internal/genai"
	"github.com/leadpilot/icpflow/internal/models"
)

// backfillHistoryLimit caps how many trailing utterances the backfill pass scans.
const backfillHistoryLimit = 10

// Engine is the turn processor: given the persisted context, the incoming
// message, and recent history, it backfills the context from history, heals
// stage drift, dispatches to the matching stage handler, and returns the new
// context plus the reply. The engine holds no per-conversation state; the
// context crosses the boundary by value on every call, so turns for different
// conversations may run fully in parallel. Turns for the same conversation
// must be serialized by the caller.
type Engine struct {
	extractor *IntentExtractor
	responder *ResponseGenerator
}

// NewEngine creates an engine. The genai client is an optional capability: a
// nil client puts both the extractor and the responder in pure deterministic
// mode.
func NewEngine(client genai.ClientInterface) *Engine {
	return &Engine{
		extractor: NewIntentExtractor(client),
		responder: NewResponseGenerator(client),
	}
}

// ProcessTurn processes one conversation turn. It never fails: every
// reachable state produces a valid response, with generative failures
// recovered on the deterministic tier.
func (e *Engine) ProcessTurn(ctx context.Context, conversationID, message string, history []models.Utterance, conv *models.ConversationContext) models.TurnResult {
	var c models.ConversationContext
	if conv == nil || conv.Stage == "" || !models.IsValidStage(conv.Stage) {
		c = InitContext()
		slog.Debug("Engine.ProcessTurn: initialized fresh context", "conversationID", conversationID)
	} else {
		c = *conv
	}

	trimmed := strings.TrimSpace(message)
	e.backfill(&c, history, trimmed, conversationID)
	e.selfHeal(&c, conversationID)

	var reply string
	switch c.Stage {
	case models.StageInit:
		c, reply = e.handleInit(ctx, c, message, history)
	case models.StageOutreachType:
		c, reply = e.handleOutreachType(ctx, c, message, history)
	case models.StageInboundFlow:
		c, reply = e.handleInboundFlow(ctx, c, message, history)
	case models.StageTargetKnowledge:
		c, reply = e.handleTargetKnowledge(ctx, c, message, history)
	case models.StageKnownTarget:
		c, reply = e.handleKnownTarget(ctx, c, message, history)
	case models.StageICPDiscovery:
		c, reply = e.handleICPDiscovery(ctx, c, message, history)
	case models.StageConfirmation:
		c, reply = e.handleConfirmation(ctx, c, message, history)
	case models.StageReady:
		c, reply = e.handleReady(ctx, c, message, history)
	}

	c.Status = models.StatusForStage(c.Stage)
	slog.Debug("Engine.ProcessTurn: turn complete",
		"conversationID", conversationID,
		"stage", c.Stage,
		"status", c.Status,
		"responseLength", len(reply))

	return models.TurnResult{
		Response:          reply,
		Context:           c,
		Status:            c.Status,
		ReadyForExecution: c.Stage == models.StageReady,
	}
}

// backfill scans recent history for outreach-type and target-knowledge signal
// phrases and sets them if currently unset. This recovers correctness when
// the persisted context was lost or never advanced despite prior turns.
// When the live message targets one of these fields (its question stage is
// active and a message is present), that field is left for the live
// extraction, which always wins for the active stage.
func (e *Engine) backfill(c *models.ConversationContext, history []models.Utterance, trimmedMessage, conversationID string) {
	skipOutreach := c.Stage == models.StageOutreachType && trimmedMessage != ""
	skipKnowledge := c.Stage == models.StageTargetKnowledge && trimmedMessage != ""

	for _, u := range tailUtterances(history, backfillHistoryLimit) {
		if u.Role != models.RoleUser {
			continue
		}
		if c.OutreachType == "" && !skipOutreach {
			if ot := classifyOutreachType(u.Content); ot != "" {
				c.OutreachType = ot
				slog.Debug("Engine.backfill: recovered outreach type from history", "conversationID", conversationID, "outreachType", ot)
			}
		}
		if c.TargetKnowledge == "" && !skipKnowledge {
			if tk := classifyTargetKnowledge(u.Content); tk != "" {
				c.TargetKnowledge = tk
				slog.Debug("Engine.backfill: recovered target knowledge from history", "conversationID", conversationID, "targetKnowledge", tk)
			}
			if len(extractLinkedInURLs(u.Content)) > 0 {
				c.TargetKnowledge = models.TargetsKnown
			}
		}
	}
}

// selfHeal corrects the stage pointer before dispatch: a scalar that gates a
// stage being already set advances the stage past that question, and
// unreachable (stage, branch) combinations are moved to the branch the field
// values imply. This keeps externally reloaded contexts from ever being asked
// the same question twice.
func (e *Engine) selfHeal(c *models.ConversationContext, conversationID string) {
	before := c.Stage

	switch c.OutreachType {
	case models.OutreachInbound:
		switch c.Stage {
		case models.StageInit, models.StageOutreachType,
			models.StageTargetKnowledge, models.StageKnownTarget, models.StageICPDiscovery:
			c.Stage = models.StageInboundFlow
		}
	case models.OutreachOutbound:
		switch c.Stage {
		case models.StageInit, models.StageOutreachType, models.StageInboundFlow:
			c.Stage = branchEntryStage(*c)
		case models.StageTargetKnowledge:
			if c.TargetKnowledge != "" {
				c.Stage = branchEntryStage(*c)
			}
		case models.StageKnownTarget:
			if c.TargetKnowledge == models.TargetsDiscovery {
				c.Stage = models.StageICPDiscovery
			}
		case models.StageICPDiscovery:
			if c.TargetKnowledge == models.TargetsKnown {
				c.Stage = models.StageKnownTarget
			}
		}
	default:
		// No branch chosen yet: outbound sub-stages are unreachable.
		switch c.Stage {
		case models.StageInboundFlow, models.StageTargetKnowledge,
			models.StageKnownTarget, models.StageICPDiscovery:
			c.Stage = models.StageOutreachType
		}
	}

	if c.Stage != before {
		slog.Debug("Engine.selfHeal: corrected stage drift",
			"conversationID", conversationID, "from", before, "to", c.Stage)
	}
}
