package icp

import (
	"fmt"

	"github.com/leadpilot/icpflow/internal/models"
)

// fieldKey identifies which field a question targets within a stage. The
// fallback template table must cover every (stage, fieldKey) pair the stage
// machine can reach; a gap is a design defect, not a runtime error.
type fieldKey string

const (
	fieldNone             fieldKey = ""
	fieldOutreachType     fieldKey = "outreachType"
	fieldTargetKnowledge  fieldKey = "targetKnowledge"
	fieldInboundSource    fieldKey = "inboundSource"
	fieldInboundDataReady fieldKey = "inboundDataReady"
	fieldCaptureRules     fieldKey = "captureRules"
	fieldTargets          fieldKey = "targets"
	fieldRoles            fieldKey = "roles"
	fieldIndustries       fieldKey = "industries"
	fieldCompanySize      fieldKey = "companySize"
	fieldLocations        fieldKey = "locations"
	fieldDealType         fieldKey = "dealType"
	fieldProblemStatement fieldKey = "problemStatement"
	fieldConfirmation     fieldKey = "confirmation"
)

// QuestionType distinguishes a fresh question from a clarification re-ask and
// from the post-rejection edit prompt.
type QuestionType string

const (
	QuestionFresh         QuestionType = "question"
	QuestionClarification QuestionType = "clarification"
	QuestionEdit          QuestionType = "edit"
)

// stageTemplates is the deterministic fallback tier: one fixed template per
// reachable (stage, missing-field) pair.
var stageTemplates = map[models.Stage]map[fieldKey]string{
	models.StageOutreachType: {
		fieldOutreachType: "Welcome! I'll help you set up your ideal customer profile. To start: are you looking to\n1) Reach out to new prospects yourself (outbound), or\n2) Capture and respond to leads that come to you (inbound)?",
	},
	models.StageInboundFlow: {
		fieldInboundSource:    "Where do your inbound leads come from? For example: website forms, demo requests, social media, or referrals.",
		fieldInboundDataReady: "Do you already have lead-capture data set up for these leads? (yes/no)",
		fieldCaptureRules:     "What are the minimum fields we should capture from each inbound lead? For example: name, email, and company.",
	},
	models.StageTargetKnowledge: {
		fieldTargetKnowledge: "Do you already know exactly who you want to reach — specific companies or people — or would you like help discovering your ideal targets?",
	},
	models.StageKnownTarget: {
		fieldTargets:   "Great — who are your targets? Paste LinkedIn profile URLs or list the companies you want to reach.",
		fieldRoles:     "Which roles should we reach at those companies? For example: CEO, founder, or Head of Sales.",
		fieldLocations: "Which locations or regions should we focus on?",
	},
	models.StageICPDiscovery: {
		fieldProblemStatement: "Let's build your ideal customer profile from scratch. First: what problem does your product or service solve?",
		fieldRoles:            "Who typically makes the buying decision? Which roles should we target? For example: CEO, founder, or VP of Sales.",
		fieldIndustries:       "Which industries are the best fit for what you offer?",
		fieldCompanySize:      "What size of companies are you targeting?\n1) Startup\n2) Small business (SMB)\n3) Mid-market\n4) Enterprise",
		fieldLocations:        "Which locations or regions should we focus on?",
		fieldDealType:         "Are your deals typically high-ticket with a longer sales cycle, or low-ticket and more transactional?",
	},
	models.StageConfirmation: {
		fieldConfirmation: "Here's the profile I've put together:\n\n%s\n\nDoes this look correct? (yes/no)",
	},
	models.StageReady: {
		fieldNone: "You're all set — your ideal customer profile is confirmed and ready to run. I'll take it from here!",
	},
}

// clarificationTemplates re-ask a question whose answer could not be
// classified, without mutating the context.
var clarificationTemplates = map[models.Stage]map[fieldKey]string{
	models.StageOutreachType: {
		fieldOutreachType: "Just to make sure I set this up right: do you want to reach out to prospects yourself (outbound), or handle leads that come to you (inbound)?",
	},
	models.StageInboundFlow: {
		fieldInboundSource:    "I didn't quite catch that — where do your inbound leads usually come from?",
		fieldInboundDataReady: "Sorry, I need a quick yes or no: do you already have lead-capture data for these leads?",
		fieldCaptureRules:     "Could you list the fields to capture from each lead? Even just 'name and email' works.",
	},
	models.StageTargetKnowledge: {
		fieldTargetKnowledge: "No rush — do you already have specific companies or people in mind, or should I help you discover who to target?",
	},
	models.StageKnownTarget: {
		fieldTargets:   "I couldn't pick out any targets there. Could you paste LinkedIn URLs or name a few companies?",
		fieldRoles:     "Which job titles should we reach? A couple of examples like 'CEO' or 'Head of Sales' is plenty.",
		fieldLocations: "Which countries, regions, or cities should we focus on?",
	},
	models.StageICPDiscovery: {
		fieldProblemStatement: "Could you describe in a sentence what problem you solve for your customers?",
		fieldRoles:            "Which job titles usually make the buying decision for you?",
		fieldIndustries:       "Which industries do your best customers come from?",
		fieldCompanySize:      "Roughly what size are your target companies — startup, SMB, mid-market, or enterprise?",
		fieldLocations:        "Which countries, regions, or cities should we focus on?",
		fieldDealType:         "Would you call your typical deal high-ticket (bigger, slower) or low-ticket (smaller, faster)?",
	},
	models.StageConfirmation: {
		fieldConfirmation: "Sorry, I need a clear yes or no — does the profile above look correct?",
	},
}

// editPromptTemplate is used after a confirmation rejection.
const editPromptTemplate = "No problem — what would you like to change? Tell me the corrected details and I'll update the profile."

// readyAcknowledgement is the terminal-stage response to any further message.
const readyAcknowledgement = "Your ideal customer profile is locked in and ready for execution. Nothing more needed from you!"

// fallbackTemplate returns the deterministic template for a (stage, field)
// pair. Confirmation templates embed the profile summary.
func fallbackTemplate(stage models.Stage, field fieldKey, questionType QuestionType, conv models.ConversationContext) string {
	if questionType == QuestionEdit {
		return editPromptTemplate
	}

	table := stageTemplates
	if questionType == QuestionClarification {
		table = clarificationTemplates
	}

	if byField, ok := table[stage]; ok {
		if tmpl, ok := byField[field]; ok {
			if stage == models.StageConfirmation && questionType == QuestionFresh {
				return fmt.Sprintf(tmpl, Summarize(conv))
			}
			return tmpl
		}
	}

	// Reaching here means a template gap for a reachable pair; the tests over
	// reachable pairs keep this branch dead.
	if stage == models.StageReady {
		return readyAcknowledgement
	}
	return "Could you tell me a bit more about your ideal customers?"
}
