// Package icp implements the ideal-customer-profile intake dialogue engine:
// the conversation context model, the two-tier intent extractor, the two-tier
// response generator, and the stage machine that orchestrates one turn at a time.
package icp

import (
	"fmt"
	"strings"

	"github.com/leadpilot/icpflow/internal/models"
)

// InitContext creates an empty conversation context at the initial stage.
func InitContext() models.ConversationContext {
	return models.ConversationContext{
		Stage:  models.StageInit,
		Status: models.StatusCollectingInfo,
	}
}

// MergeFields returns a new context where every sequence field is unioned
// (case-insensitive dedupe, first-seen order preserved) and every scalar field
// is set only if currently unset. First writer wins: a later ambiguous
// extraction never clobbers a confirmed earlier answer.
func MergeFields(conv models.ConversationContext, partial models.PartialFields) models.ConversationContext {
	merged := conv

	if merged.OutreachType == "" {
		merged.OutreachType = partial.OutreachType
	}
	if merged.TargetKnowledge == "" {
		merged.TargetKnowledge = partial.TargetKnowledge
	}
	if merged.InboundSource == "" {
		merged.InboundSource = partial.InboundSource
	}
	if merged.InboundDataReady == nil && partial.InboundDataReady != nil {
		v := *partial.InboundDataReady
		merged.InboundDataReady = &v
	}
	if merged.CaptureRules == "" {
		merged.CaptureRules = partial.CaptureRules
	}
	if merged.ProblemStatement == "" {
		merged.ProblemStatement = partial.ProblemStatement
	}
	if merged.CompanySize == "" {
		merged.CompanySize = partial.CompanySize
	}
	if merged.DealType == "" {
		merged.DealType = partial.DealType
	}

	merged.LinkedInURLs = mergeList(conv.LinkedInURLs, partial.LinkedInURLs)
	merged.Companies = mergeList(conv.Companies, partial.Companies)
	merged.Roles = mergeList(conv.Roles, partial.Roles)
	merged.Industries = mergeList(conv.Industries, partial.Industries)
	merged.Locations = mergeList(conv.Locations, partial.Locations)

	return merged
}

// mergeFieldsOverwrite is the edit-mode variant used after a confirmation
// rejection: scalars extracted from the live message replace existing values,
// lists still union. This is the only path that may change an already-set scalar.
func mergeFieldsOverwrite(conv models.ConversationContext, partial models.PartialFields) models.ConversationContext {
	merged := conv

	if partial.OutreachType != "" {
		merged.OutreachType = partial.OutreachType
	}
	if partial.TargetKnowledge != "" {
		merged.TargetKnowledge = partial.TargetKnowledge
	}
	if partial.InboundSource != "" {
		merged.InboundSource = partial.InboundSource
	}
	if partial.InboundDataReady != nil {
		v := *partial.InboundDataReady
		merged.InboundDataReady = &v
	}
	if partial.CaptureRules != "" {
		merged.CaptureRules = partial.CaptureRules
	}
	if partial.ProblemStatement != "" {
		merged.ProblemStatement = partial.ProblemStatement
	}
	if partial.CompanySize != "" {
		merged.CompanySize = partial.CompanySize
	}
	if partial.DealType != "" {
		merged.DealType = partial.DealType
	}

	merged.LinkedInURLs = mergeList(conv.LinkedInURLs, partial.LinkedInURLs)
	merged.Companies = mergeList(conv.Companies, partial.Companies)
	merged.Roles = mergeList(conv.Roles, partial.Roles)
	merged.Industries = mergeList(conv.Industries, partial.Industries)
	merged.Locations = mergeList(conv.Locations, partial.Locations)

	return merged
}

// mergeList unions two string slices with case-insensitive dedupe, preserving
// first-seen order. The result is always a fresh slice so contexts never alias.
func mergeList(existing, incoming []string) []string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, v := range existing {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	for _, v := range incoming {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// Summarize builds a short, deterministic human-readable digest of the
// collected profile. It is stable for identical contexts: it is shown to the
// user at confirmation and fed as grounding text to the generative tiers.
func Summarize(conv models.ConversationContext) string {
	var lines []string

	if conv.OutreachType != "" {
		lines = append(lines, fmt.Sprintf("Outreach type: %s", conv.OutreachType))
	}
	if conv.OutreachType == models.OutreachInbound {
		if conv.InboundSource != "" {
			lines = append(lines, fmt.Sprintf("Lead source: %s", conv.InboundSource))
		}
		if conv.InboundDataReady != nil {
			lines = append(lines, fmt.Sprintf("Lead data ready: %s", yesNo(*conv.InboundDataReady)))
		}
		if conv.CaptureRules != "" {
			lines = append(lines, fmt.Sprintf("Capture rules: %s", conv.CaptureRules))
		}
	}
	if conv.TargetKnowledge != "" {
		lines = append(lines, fmt.Sprintf("Target knowledge: %s", conv.TargetKnowledge))
	}
	if conv.ProblemStatement != "" {
		lines = append(lines, fmt.Sprintf("Problem solved: %s", conv.ProblemStatement))
	}
	if len(conv.LinkedInURLs) > 0 {
		lines = append(lines, fmt.Sprintf("LinkedIn targets: %s", strings.Join(conv.LinkedInURLs, ", ")))
	}
	if len(conv.Companies) > 0 {
		lines = append(lines, fmt.Sprintf("Companies: %s", strings.Join(conv.Companies, ", ")))
	}
	if len(conv.Roles) > 0 {
		lines = append(lines, fmt.Sprintf("Roles: %s", strings.Join(conv.Roles, ", ")))
	}
	if len(conv.Industries) > 0 {
		lines = append(lines, fmt.Sprintf("Industries: %s", strings.Join(conv.Industries, ", ")))
	}
	if conv.CompanySize != "" {
		lines = append(lines, fmt.Sprintf("Company size: %s", companySizeLabel(conv.CompanySize)))
	}
	if len(conv.Locations) > 0 {
		lines = append(lines, fmt.Sprintf("Locations: %s", strings.Join(conv.Locations, ", ")))
	}
	if conv.DealType != "" {
		lines = append(lines, fmt.Sprintf("Deal type: %s", dealTypeLabel(conv.DealType)))
	}

	if len(lines) == 0 {
		return "No profile details collected yet."
	}
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func companySizeLabel(s models.CompanySize) string {
	switch s {
	case models.SizeStartup:
		return "startup"
	case models.SizeSMB:
		return "small business (SMB)"
	case models.SizeMidMarket:
		return "mid-market"
	case models.SizeEnterprise:
		return "enterprise"
	default:
		return string(s)
	}
}

func dealTypeLabel(d models.DealType) string {
	switch d {
	case models.DealHighTicket:
		return "high-ticket"
	case models.DealLowTicket:
		return "low-ticket / transactional"
	default:
		return string(d)
	}
}
