package icp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/leadpilot/icpflow/internal/genai"
	"github.com/leadpilot/icpflow/internal/models"
)

// extractorHistoryLimit bounds how much trailing history grounds the
// generative extraction prompt.
const extractorHistoryLimit = 6

// IntentExtractor turns one user utterance (plus recent history and the
// current context) into a partial set of new field values. Two tiers:
// schema-constrained generative extraction first, deterministic pattern and
// gazetteer matching as fallback. Extract always returns a result and never
// surfaces an error to the caller.
type IntentExtractor struct {
	client genai.ClientInterface
	rules  RuleExtractor
}

// NewIntentExtractor creates an extractor. A nil client means pure rule mode.
func NewIntentExtractor(client genai.ClientInterface) *IntentExtractor {
	return &IntentExtractor{client: client}
}

// llmExtraction is the fixed JSON shape requested from the generative tier.
type llmExtraction struct {
	OutreachType     *string  `json:"outreachType"`
	TargetKnowledge  *string  `json:"targetKnowledge"`
	Roles            []string `json:"roles"`
	Industries       []string `json:"industries"`
	Locations        []string `json:"locations"`
	Companies        []string `json:"companies"`
	LinkedInURLs     []string `json:"linkedinUrls"`
	ProblemStatement *string  `json:"problemStatement"`
	CompanySize      *string  `json:"companySize"`
	DealType         *string  `json:"dealType"`
	Confidence       *int     `json:"confidence"`
}

// extractionSchema is the JSON schema sent with structured extraction requests.
var extractionSchema = map[string]interface{}{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"outreachType":     map[string]interface{}{"type": []string{"string", "null"}, "enum": []interface{}{"inbound", "outbound", nil}},
		"targetKnowledge":  map[string]interface{}{"type": []string{"string", "null"}, "enum": []interface{}{"known", "discovery", nil}},
		"roles":            map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"industries":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"locations":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"companies":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"linkedinUrls":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"problemStatement": map[string]interface{}{"type": []string{"string", "null"}},
		"companySize":      map[string]interface{}{"type": []string{"string", "null"}, "enum": []interface{}{"startup", "smb", "mid_market", "enterprise", nil}},
		"dealType":         map[string]interface{}{"type": []string{"string", "null"}, "enum": []interface{}{"high_ticket", "low_ticket", nil}},
		"confidence":       map[string]interface{}{"type": []string{"integer", "null"}, "minimum": 0, "maximum": 100},
	},
	"required": []string{"outreachType", "targetKnowledge", "roles", "industries", "locations", "companies", "linkedinUrls", "problemStatement", "companySize", "dealType", "confidence"},
}

// Extract runs both tiers and returns whatever fields were recovered.
func (e *IntentExtractor) Extract(ctx context.Context, message string, history []models.Utterance, conv models.ConversationContext) models.PartialFields {
	if strings.TrimSpace(message) == "" {
		return models.PartialFields{}
	}

	if e.client != nil {
		partial, ok := e.extractStructured(ctx, message, history, conv)
		if ok {
			slog.Debug("IntentExtractor.Extract: structured tier succeeded", "confidence", partial.Confidence)
			return partial
		}
		slog.Debug("IntentExtractor.Extract: structured tier unusable, falling back to rules")
	}

	return e.rules.Extract(message)
}

// extractStructured runs the schema-constrained generative tier. The response
// is accepted only if it parses as JSON matching the schema; anything else
// falls through to the deterministic tier.
func (e *IntentExtractor) extractStructured(ctx context.Context, message string, history []models.Utterance, conv models.ConversationContext) (models.PartialFields, bool) {
	var prompt strings.Builder
	prompt.WriteString("Extract ideal-customer-profile fields from the user's latest message. ")
	prompt.WriteString("Return ONLY fields the message itself supports; use null or empty arrays for everything else. Never guess.\n\n")
	prompt.WriteString("Profile collected so far:\n")
	prompt.WriteString(Summarize(conv))
	prompt.WriteString("\n\nRecent conversation:\n")
	prompt.WriteString(formatHistoryForPrompt(history, extractorHistoryLimit))

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.String()),
		openai.UserMessage(message),
	}

	raw, err := e.client.GenerateStructured(ctx, messages, "icp_field_extraction", extractionSchema)
	if err != nil {
		slog.Warn("IntentExtractor.extractStructured: generative call failed", "error", err)
		return models.PartialFields{}, false
	}

	var parsed llmExtraction
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Warn("IntentExtractor.extractStructured: response is not valid JSON", "error", err)
		return models.PartialFields{}, false
	}

	return e.convertExtraction(parsed), true
}

// convertExtraction validates and normalizes the generative output. Invalid
// enum values are discarded rather than guessed at.
func (e *IntentExtractor) convertExtraction(parsed llmExtraction) models.PartialFields {
	var partial models.PartialFields

	if parsed.OutreachType != nil {
		switch models.OutreachType(strings.ToLower(*parsed.OutreachType)) {
		case models.OutreachInbound:
			partial.OutreachType = models.OutreachInbound
		case models.OutreachOutbound:
			partial.OutreachType = models.OutreachOutbound
		}
	}
	if parsed.TargetKnowledge != nil {
		switch models.TargetKnowledge(strings.ToLower(*parsed.TargetKnowledge)) {
		case models.TargetsKnown:
			partial.TargetKnowledge = models.TargetsKnown
		case models.TargetsDiscovery:
			partial.TargetKnowledge = models.TargetsDiscovery
		}
	}
	if parsed.CompanySize != nil {
		if size := models.CompanySize(strings.ToLower(*parsed.CompanySize)); models.IsValidCompanySize(size) {
			partial.CompanySize = size
		}
	}
	if parsed.DealType != nil {
		if deal := models.DealType(strings.ToLower(*parsed.DealType)); models.IsValidDealType(deal) {
			partial.DealType = deal
		}
	}
	if parsed.ProblemStatement != nil && strings.TrimSpace(*parsed.ProblemStatement) != "" {
		partial.ProblemStatement = strings.TrimSpace(*parsed.ProblemStatement)
	}

	partial.Roles = normalizeValues(parsed.Roles)
	partial.Industries = normalizeValues(parsed.Industries)
	partial.Locations = normalizeValues(parsed.Locations)
	partial.Companies = normalizeValues(parsed.Companies)
	partial.LinkedInURLs = mergeList(nil, parsed.LinkedInURLs)
	if len(partial.LinkedInURLs) > 0 {
		// Same invariant as the rule tier: concrete URLs mean known targets.
		partial.TargetKnowledge = models.TargetsKnown
	}

	if parsed.Confidence != nil && *parsed.Confidence >= 0 && *parsed.Confidence <= 100 {
		partial.Confidence = *parsed.Confidence
	} else {
		partial.Confidence = scoreConfidence(partial)
	}
	return partial
}

// normalizeValues title-cases and dedupes a list of extracted entity values.
func normalizeValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		normalized = append(normalized, titleCase(v))
	}
	return mergeList(nil, normalized)
}
