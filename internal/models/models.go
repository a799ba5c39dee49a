// Package models defines the core data structures for icpflow.
//
// It includes the conversation context accumulated across intake turns, the
// dialogue stage machine enums, and the turn request/result types shared
// across modules.
package models

import (
	"errors"
	"time"
)

// Stage identifies the currently open question in the intake dialogue.
type Stage string

const (
	// StageInit is the initial stage before any question has been asked.
	StageInit Stage = "init"
	// StageOutreachType asks whether the user runs inbound or outbound campaigns.
	StageOutreachType Stage = "outreach_type"
	// StageInboundFlow collects inbound lead source, data readiness, and capture rules.
	StageInboundFlow Stage = "inbound_flow"
	// StageTargetKnowledge asks whether the user already knows their outbound targets.
	StageTargetKnowledge Stage = "outbound_target_knowledge"
	// StageKnownTarget collects concrete targets (LinkedIn URLs, companies) plus roles and locations.
	StageKnownTarget Stage = "outbound_known_target"
	// StageICPDiscovery elicits the full ideal-customer profile from scratch.
	StageICPDiscovery Stage = "outbound_icp_discovery"
	// StageConfirmation presents the collected profile and asks for a yes/no.
	StageConfirmation Stage = "confirmation"
	// StageReady is the terminal happy-path stage; the profile can be executed against.
	StageReady Stage = "ready_for_execution"
)

// IsValidStage checks if the given stage is one the engine knows how to dispatch.
func IsValidStage(s Stage) bool {
	switch s {
	case StageInit, StageOutreachType, StageInboundFlow, StageTargetKnowledge,
		StageKnownTarget, StageICPDiscovery, StageConfirmation, StageReady:
		return true
	default:
		return false
	}
}

// ConversationStatus is the coarse caller-facing status, derivable from Stage
// but kept explicit for external consumers.
type ConversationStatus string

const (
	// StatusCollectingInfo means the engine is still asking intake questions.
	StatusCollectingInfo ConversationStatus = "collecting_info"
	// StatusAwaitingConfirmation means the summary has been presented for approval.
	StatusAwaitingConfirmation ConversationStatus = "awaiting_confirmation"
	// StatusReadyForExecution means the profile was confirmed and can be executed against.
	StatusReadyForExecution ConversationStatus = "ready_for_execution"
)

// StatusForStage derives the caller-facing status from a stage.
func StatusForStage(s Stage) ConversationStatus {
	switch s {
	case StageConfirmation:
		return StatusAwaitingConfirmation
	case StageReady:
		return StatusReadyForExecution
	default:
		return StatusCollectingInfo
	}
}

// OutreachType is the top-level branch of the dialogue tree.
type OutreachType string

const (
	// OutreachInbound means leads come to the user and need to be captured.
	OutreachInbound OutreachType = "inbound"
	// OutreachOutbound means the user reaches out to prospects.
	OutreachOutbound OutreachType = "outbound"
)

// TargetKnowledge is the outbound sub-branch: does the user already know who to target.
type TargetKnowledge string

const (
	// TargetsKnown means the user can name their targets directly.
	TargetsKnown TargetKnowledge = "known"
	// TargetsDiscovery means the profile must be elicited attribute by attribute.
	TargetsDiscovery TargetKnowledge = "discovery"
)

// CompanySize qualifies the size band of target companies.
type CompanySize string

const (
	SizeStartup    CompanySize = "startup"
	SizeSMB        CompanySize = "smb"
	SizeMidMarket  CompanySize = "mid_market"
	SizeEnterprise CompanySize = "enterprise"
)

// IsValidCompanySize checks whether the value is a known size band.
func IsValidCompanySize(s CompanySize) bool {
	switch s {
	case SizeStartup, SizeSMB, SizeMidMarket, SizeEnterprise:
		return true
	default:
		return false
	}
}

// DealType qualifies the shape of deals the user closes.
type DealType string

const (
	DealHighTicket DealType = "high_ticket"
	DealLowTicket  DealType = "low_ticket"
)

// IsValidDealType checks whether the value is a known deal type.
func IsValidDealType(d DealType) bool {
	return d == DealHighTicket || d == DealLowTicket
}

// ConversationContext is the accumulated, serializable answer set plus current
// stage for one conversation. It is the only state the intake engine holds
// between turns: it crosses the engine boundary by value on every call, and the
// caller is responsible for persisting it (as conversation metadata) between turns.
type ConversationContext struct {
	Stage            Stage              `json:"stage"`
	Status           ConversationStatus `json:"status"`
	OutreachType     OutreachType       `json:"outreachType,omitempty"`
	TargetKnowledge  TargetKnowledge    `json:"targetKnowledge,omitempty"`
	InboundSource    string             `json:"inboundSource,omitempty"`
	InboundDataReady *bool              `json:"inboundDataReady,omitempty"`
	CaptureRules     string             `json:"captureRules,omitempty"`
	LinkedInURLs     []string           `json:"linkedinUrls,omitempty"`
	Companies        []string           `json:"companies,omitempty"`
	Roles            []string           `json:"roles,omitempty"`
	Industries       []string           `json:"industries,omitempty"`
	Locations        []string           `json:"locations,omitempty"`
	ProblemStatement string             `json:"problemStatement,omitempty"`
	CompanySize      CompanySize        `json:"companySize,omitempty"`
	DealType         DealType           `json:"dealType,omitempty"`
	Confirmed        *bool              `json:"confirmed,omitempty"`
}

// PartialFields is the output of one extraction pass over a single user
// utterance. Unset scalars are empty strings or nil pointers; the merge into
// the context is append-only for lists and first-writer-wins for scalars.
type PartialFields struct {
	OutreachType     OutreachType    `json:"outreachType,omitempty"`
	TargetKnowledge  TargetKnowledge `json:"targetKnowledge,omitempty"`
	InboundSource    string          `json:"inboundSource,omitempty"`
	InboundDataReady *bool           `json:"inboundDataReady,omitempty"`
	CaptureRules     string          `json:"captureRules,omitempty"`
	LinkedInURLs     []string        `json:"linkedinUrls,omitempty"`
	Companies        []string        `json:"companies,omitempty"`
	Roles            []string        `json:"roles,omitempty"`
	Industries       []string        `json:"industries,omitempty"`
	Locations        []string        `json:"locations,omitempty"`
	ProblemStatement string          `json:"problemStatement,omitempty"`
	CompanySize      CompanySize     `json:"companySize,omitempty"`
	DealType         DealType        `json:"dealType,omitempty"`
	// Confidence is a 0-100 diagnostic score. It never drives control flow;
	// field presence does.
	Confidence int `json:"confidence,omitempty"`
}

// IsEmpty reports whether the extraction recovered nothing at all.
func (p PartialFields) IsEmpty() bool {
	return p.OutreachType == "" && p.TargetKnowledge == "" &&
		p.InboundSource == "" && p.InboundDataReady == nil && p.CaptureRules == "" &&
		len(p.LinkedInURLs) == 0 && len(p.Companies) == 0 && len(p.Roles) == 0 &&
		len(p.Industries) == 0 && len(p.Locations) == 0 &&
		p.ProblemStatement == "" && p.CompanySize == "" && p.DealType == ""
}

// Role constants for utterances.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Utterance is a single message in the conversation history. The engine only
// reads the most recent few for backfill heuristics and extraction prompts.
type Utterance struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnResult is the outcome of processing one turn.
type TurnResult struct {
	Response          string              `json:"response"`
	Context           ConversationContext `json:"context"`
	Status            ConversationStatus  `json:"status"`
	ReadyForExecution bool                `json:"readyForExecution"`
}

// Error variables for request validation and lookups.
var (
	ErrEmptyUserID          = errors.New("user id cannot be empty")
	ErrEmptyTenantID        = errors.New("tenant id cannot be empty")
	ErrEmptyConversationID  = errors.New("conversation id cannot be empty")
	ErrMessageTooLong       = errors.New("message exceeds maximum length")
	ErrConversationNotFound = errors.New("conversation not found")
)

// MaxMessageLength defines the maximum allowed length for a single user message.
const MaxMessageLength = 8192
