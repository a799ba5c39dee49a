package icp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/leadpilot/icpflow/internal/models"
)

// Per-stage business rules: which question is still open, what counts as
// answered, and which stage follows given the just-updated context.

// inboundOpenField returns the next unanswered inbound question. Capture
// rules are only required when lead data is not already in place.
func inboundOpenField(c models.ConversationContext) fieldKey {
	if c.InboundSource == "" {
		return fieldInboundSource
	}
	if c.InboundDataReady == nil {
		return fieldInboundDataReady
	}
	if !*c.InboundDataReady && c.CaptureRules == "" {
		return fieldCaptureRules
	}
	return fieldNone
}

// knownTargetOpenField requires at least one of (LinkedIn URLs, companies)
// before roles, then locations.
func knownTargetOpenField(c models.ConversationContext) fieldKey {
	if len(c.LinkedInURLs) == 0 && len(c.Companies) == 0 {
		return fieldTargets
	}
	if len(c.Roles) == 0 {
		return fieldRoles
	}
	if len(c.Locations) == 0 {
		return fieldLocations
	}
	return fieldNone
}

// discoveryOpenField walks the fixed discovery question order.
func discoveryOpenField(c models.ConversationContext) fieldKey {
	if c.ProblemStatement == "" {
		return fieldProblemStatement
	}
	if len(c.Roles) == 0 {
		return fieldRoles
	}
	if len(c.Industries) == 0 {
		return fieldIndustries
	}
	if c.CompanySize == "" {
		return fieldCompanySize
	}
	if len(c.Locations) == 0 {
		return fieldLocations
	}
	if c.DealType == "" {
		return fieldDealType
	}
	return fieldNone
}

// openFieldForStage resolves the open question for any collecting stage.
func openFieldForStage(c models.ConversationContext) fieldKey {
	switch c.Stage {
	case models.StageOutreachType:
		return fieldOutreachType
	case models.StageInboundFlow:
		return inboundOpenField(c)
	case models.StageTargetKnowledge:
		return fieldTargetKnowledge
	case models.StageKnownTarget:
		return knownTargetOpenField(c)
	case models.StageICPDiscovery:
		return discoveryOpenField(c)
	case models.StageConfirmation:
		return fieldConfirmation
	default:
		return fieldNone
	}
}

// inEditMode reports whether the conversation is in the post-rejection edit
// window, the only window in which set scalars may be replaced.
func inEditMode(c models.ConversationContext) bool {
	return c.Confirmed != nil && !*c.Confirmed
}

// rejectionTarget routes a confirmation rejection back into whichever
// collecting stage matches the current branch, never to init.
func rejectionTarget(c models.ConversationContext) models.Stage {
	switch {
	case c.OutreachType == models.OutreachInbound:
		return models.StageInboundFlow
	case c.OutreachType == models.OutreachOutbound && c.TargetKnowledge == models.TargetsKnown:
		return models.StageKnownTarget
	case c.OutreachType == models.OutreachOutbound && c.TargetKnowledge == models.TargetsDiscovery:
		return models.StageICPDiscovery
	case c.OutreachType == models.OutreachOutbound:
		return models.StageTargetKnowledge
	default:
		return models.StageOutreachType
	}
}

// branchEntryStage resolves where a freshly classified outreach type leads.
func branchEntryStage(c models.ConversationContext) models.Stage {
	if c.OutreachType == models.OutreachInbound {
		return models.StageInboundFlow
	}
	switch c.TargetKnowledge {
	case models.TargetsKnown:
		return models.StageKnownTarget
	case models.TargetsDiscovery:
		return models.StageICPDiscovery
	default:
		return models.StageTargetKnowledge
	}
}

// listAnswerLimits guard the raw-message fallback for list questions.
const (
	maxListAnswerLength = 120
	maxListAnswerItems  = 6
	maxListItemWords    = 4
)

// splitListAnswer interprets a short free-text reply as a list of values for
// the currently open list question, used only when neither extraction tier
// recovered that field. Returns nil when the message does not look like an
// enumeration (a question, a negation, a yes/no, or prose).
func splitListAnswer(message string) []string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || len(trimmed) > maxListAnswerLength {
		return nil
	}
	if strings.ContainsAny(trimmed, "?") {
		return nil
	}
	if IsGreeting(trimmed) || discoveryPhraseRe.MatchString(trimmed) || ClassifyYesNo(trimmed) != nil {
		return nil
	}

	normalized := strings.ReplaceAll(trimmed, " and ", ",")
	normalized = strings.ReplaceAll(normalized, ";", ",")
	parts := strings.Split(normalized, ",")
	if len(parts) > maxListAnswerItems {
		return nil
	}

	var items []string
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if len(strings.Fields(item)) > maxListItemWords {
			return nil
		}
		items = append(items, titleCase(item))
	}
	if len(items) == 0 {
		return nil
	}
	return mergeList(nil, items)
}

// handleInit advances a brand-new conversation to the first question.
func (e *Engine) handleInit(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	c.Stage = models.StageOutreachType
	reply := e.responder.Generate(ctx, models.StageOutreachType, fieldOutreachType, c, message, history, QuestionFresh)
	return c, reply
}

// handleOutreachType classifies the top-level branch. On extraction failure
// the question is re-asked as a clarification and the context stays untouched.
func (e *Engine) handleOutreachType(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || IsGreeting(trimmed) {
		reply := e.responder.Generate(ctx, models.StageOutreachType, fieldOutreachType, c, message, history, QuestionFresh)
		return c, reply
	}

	partial := e.extractor.Extract(ctx, message, history, c)
	if partial.OutreachType == "" {
		reply := e.responder.Generate(ctx, models.StageOutreachType, fieldOutreachType, c, message, history, QuestionClarification)
		return c, reply
	}

	c = MergeFields(c, partial)
	c.Stage = branchEntryStage(c)
	slog.Debug("Engine.handleOutreachType: branch selected", "outreachType", c.OutreachType, "nextStage", c.Stage)

	reply := e.responder.Generate(ctx, c.Stage, openFieldForStage(c), c, message, history, QuestionFresh)
	return c, reply
}

// handleTargetKnowledge classifies the outbound sub-branch with the same
// extract-or-clarify pattern as the outreach type stage.
func (e *Engine) handleTargetKnowledge(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" || IsGreeting(trimmed) {
		reply := e.responder.Generate(ctx, models.StageTargetKnowledge, fieldTargetKnowledge, c, message, history, QuestionFresh)
		return c, reply
	}

	partial := e.extractor.Extract(ctx, message, history, c)
	if partial.TargetKnowledge == "" {
		reply := e.responder.Generate(ctx, models.StageTargetKnowledge, fieldTargetKnowledge, c, message, history, QuestionClarification)
		return c, reply
	}

	c = MergeFields(c, partial)
	if c.TargetKnowledge == models.TargetsKnown {
		c.Stage = models.StageKnownTarget
	} else {
		c.Stage = models.StageICPDiscovery
	}
	slog.Debug("Engine.handleTargetKnowledge: sub-branch selected", "targetKnowledge", c.TargetKnowledge, "nextStage", c.Stage)

	nextField := openFieldForStage(c)
	if nextField == fieldNone {
		c.Stage = models.StageConfirmation
		nextField = fieldConfirmation
	}
	reply := e.responder.Generate(ctx, c.Stage, nextField, c, message, history, QuestionFresh)
	return c, reply
}

// handleInboundFlow collects source, data readiness, then capture rules.
// Source and capture rules are freeform answers taken from the message itself;
// data readiness requires a classifiable yes/no.
func (e *Engine) handleInboundFlow(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	trimmed := strings.TrimSpace(message)
	open := inboundOpenField(c)
	if trimmed == "" {
		if open == fieldNone {
			c.Stage = models.StageConfirmation
			return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
		}
		return c, e.responder.Generate(ctx, models.StageInboundFlow, open, c, message, history, QuestionFresh)
	}

	switch open {
	case fieldInboundSource:
		c.InboundSource = trimmed
	case fieldInboundDataReady:
		answer := ClassifyYesNo(trimmed)
		if answer == nil {
			reply := e.responder.Generate(ctx, models.StageInboundFlow, fieldInboundDataReady, c, message, history, QuestionClarification)
			return c, reply
		}
		c.InboundDataReady = answer
	case fieldCaptureRules:
		c.CaptureRules = trimmed
	}

	next := inboundOpenField(c)
	if next == fieldNone {
		if inEditMode(c) {
			c.Confirmed = nil
		}
		c.Stage = models.StageConfirmation
		return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
	}
	return c, e.responder.Generate(ctx, models.StageInboundFlow, next, c, message, history, QuestionFresh)
}

// handleKnownTarget accumulates concrete targets, then roles, then locations.
func (e *Engine) handleKnownTarget(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	trimmed := strings.TrimSpace(message)
	openBefore := knownTargetOpenField(c)
	if trimmed == "" {
		if openBefore == fieldNone {
			c.Stage = models.StageConfirmation
			return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
		}
		return c, e.responder.Generate(ctx, models.StageKnownTarget, openBefore, c, message, history, QuestionFresh)
	}

	partial := e.extractor.Extract(ctx, message, history, c)
	edited := inEditMode(c)
	if edited {
		c = mergeFieldsOverwrite(c, partial)
	} else {
		c = MergeFields(c, partial)
	}

	// When the open list question got an answer neither tier could read,
	// accept a short enumeration verbatim rather than stalling.
	if knownTargetOpenField(c) == openBefore {
		if items := splitListAnswer(trimmed); items != nil {
			switch openBefore {
			case fieldTargets:
				c.Companies = mergeList(c.Companies, items)
			case fieldRoles:
				c.Roles = mergeList(c.Roles, items)
			case fieldLocations:
				c.Locations = mergeList(c.Locations, items)
			}
		}
	}

	next := knownTargetOpenField(c)
	if next == fieldNone {
		if edited {
			c.Confirmed = nil
		}
		c.Stage = models.StageConfirmation
		return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
	}
	if next == openBefore {
		return c, e.responder.Generate(ctx, models.StageKnownTarget, next, c, message, history, QuestionClarification)
	}
	return c, e.responder.Generate(ctx, models.StageKnownTarget, next, c, message, history, QuestionFresh)
}

// handleICPDiscovery elicits the profile attribute by attribute in fixed order.
func (e *Engine) handleICPDiscovery(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	trimmed := strings.TrimSpace(message)
	openBefore := discoveryOpenField(c)
	if trimmed == "" {
		if openBefore == fieldNone {
			c.Stage = models.StageConfirmation
			return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
		}
		return c, e.responder.Generate(ctx, models.StageICPDiscovery, openBefore, c, message, history, QuestionFresh)
	}

	partial := e.extractor.Extract(ctx, message, history, c)
	edited := inEditMode(c)

	// The problem statement is a freeform answer: when it is the open
	// question and extraction did not isolate one, the message itself is it.
	if openBefore == fieldProblemStatement && partial.ProblemStatement == "" && !IsGreeting(trimmed) {
		partial.ProblemStatement = trimmed
	}

	if edited {
		c = mergeFieldsOverwrite(c, partial)
	} else {
		c = MergeFields(c, partial)
	}

	if discoveryOpenField(c) == openBefore {
		switch openBefore {
		case fieldRoles:
			if items := splitListAnswer(trimmed); items != nil {
				c.Roles = mergeList(c.Roles, items)
			}
		case fieldIndustries:
			if items := splitListAnswer(trimmed); items != nil {
				c.Industries = mergeList(c.Industries, items)
			}
		case fieldLocations:
			if items := splitListAnswer(trimmed); items != nil {
				c.Locations = mergeList(c.Locations, items)
			}
		}
	}

	next := discoveryOpenField(c)
	if next == fieldNone {
		if edited {
			c.Confirmed = nil
		}
		c.Stage = models.StageConfirmation
		return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
	}
	if next == openBefore {
		return c, e.responder.Generate(ctx, models.StageICPDiscovery, next, c, message, history, QuestionClarification)
	}
	return c, e.responder.Generate(ctx, models.StageICPDiscovery, next, c, message, history, QuestionFresh)
}

// handleConfirmation classifies the yes/no. Ambiguous answers re-prompt
// without mutating the context; a rejection routes back into the branch and
// opens the edit window.
func (e *Engine) handleConfirmation(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionFresh)
	}

	answer := ClassifyYesNo(trimmed)
	if answer == nil {
		return c, e.responder.Generate(ctx, models.StageConfirmation, fieldConfirmation, c, message, history, QuestionClarification)
	}

	if *answer {
		confirmed := true
		c.Confirmed = &confirmed
		c.Stage = models.StageReady
		slog.Info("Engine.handleConfirmation: profile confirmed")
		return c, e.responder.Generate(ctx, models.StageReady, fieldNone, c, message, history, QuestionFresh)
	}

	rejected := false
	c.Confirmed = &rejected
	c.Stage = rejectionTarget(c)
	// The inbound flow is short enough to re-collect outright; its answers are
	// freeform text the extractor cannot overwrite from an edit message.
	if c.Stage == models.StageInboundFlow {
		c.InboundSource = ""
		c.InboundDataReady = nil
		c.CaptureRules = ""
	}
	slog.Info("Engine.handleConfirmation: profile rejected, returning to branch", "stage", c.Stage)

	if c.Stage == models.StageInboundFlow {
		return c, e.responder.Generate(ctx, c.Stage, inboundOpenField(c), c, message, history, QuestionFresh)
	}
	return c, e.responder.Generate(ctx, c.Stage, openFieldForStage(c), c, message, history, QuestionEdit)
}

// handleReady acknowledges and mutates nothing.
func (e *Engine) handleReady(ctx context.Context, c models.ConversationContext, message string, history []models.Utterance) (models.ConversationContext, string) {
	return c, e.responder.Generate(ctx, models.StageReady, fieldNone, c, message, history, QuestionFresh)
}
