package icp

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/openai/openai-go"

	"github.com/leadpilot/icpflow/internal/models"
)

// fakeClient implements genai.ClientInterface for extractor, responder, and
// engine tests.
type fakeClient struct {
	chatResponse       string
	chatErr            error
	structuredResponse string
	structuredErr      error

	chatCalls       int
	structuredCalls int
	lastSchemaName  string
}

func (f *fakeClient) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	f.chatCalls++
	return f.chatResponse, f.chatErr
}

func (f *fakeClient) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}) (string, error) {
	f.structuredCalls++
	f.lastSchemaName = schemaName
	return f.structuredResponse, f.structuredErr
}

func TestExtract_StructuredTierWins(t *testing.T) {
	client := &fakeClient{
		structuredResponse: `{
			"outreachType": "outbound",
			"targetKnowledge": "discovery",
			"roles": ["ceo", "founder"],
			"industries": [],
			"locations": [],
			"companies": [],
			"linkedinUrls": [],
			"problemStatement": "late invoice payments",
			"companySize": "smb",
			"dealType": null,
			"confidence": 80
		}`,
	}
	extractor := NewIntentExtractor(client)

	partial := extractor.Extract(context.Background(), "we help SMBs get paid faster", nil, InitContext())
	if partial.OutreachType != models.OutreachOutbound {
		t.Errorf("expected outbound, got %q", partial.OutreachType)
	}
	if partial.TargetKnowledge != models.TargetsDiscovery {
		t.Errorf("expected discovery, got %q", partial.TargetKnowledge)
	}
	if want := []string{"Ceo", "Founder"}; !reflect.DeepEqual(partial.Roles, want) {
		t.Errorf("expected normalized roles %v, got %v", want, partial.Roles)
	}
	if partial.ProblemStatement != "late invoice payments" {
		t.Errorf("unexpected problem statement %q", partial.ProblemStatement)
	}
	if partial.CompanySize != models.SizeSMB {
		t.Errorf("expected smb, got %q", partial.CompanySize)
	}
	if partial.Confidence != 80 {
		t.Errorf("expected reported confidence 80, got %d", partial.Confidence)
	}
	if client.lastSchemaName != "icp_field_extraction" {
		t.Errorf("unexpected schema name %q", client.lastSchemaName)
	}
}

func TestExtract_InvalidEnumValuesDiscarded(t *testing.T) {
	client := &fakeClient{
		structuredResponse: `{
			"outreachType": "sideways",
			"targetKnowledge": null,
			"roles": [],
			"industries": [],
			"locations": [],
			"companies": [],
			"linkedinUrls": [],
			"problemStatement": null,
			"companySize": "gigantic",
			"dealType": "freemium",
			"confidence": 90
		}`,
	}
	partial := NewIntentExtractor(client).Extract(context.Background(), "whatever", nil, InitContext())
	if partial.OutreachType != "" || partial.CompanySize != "" || partial.DealType != "" {
		t.Errorf("expected invalid enums discarded, got %+v", partial)
	}
}

func TestExtract_LinkedInURLsForceKnownTargets(t *testing.T) {
	client := &fakeClient{
		structuredResponse: `{
			"outreachType": "outbound",
			"targetKnowledge": null,
			"roles": [],
			"industries": [],
			"locations": [],
			"companies": [],
			"linkedinUrls": ["https://linkedin.com/in/jane-doe"],
			"problemStatement": null,
			"companySize": null,
			"dealType": null,
			"confidence": 70
		}`,
	}
	partial := NewIntentExtractor(client).Extract(context.Background(), "here is one target", nil, InitContext())
	if partial.TargetKnowledge != models.TargetsKnown {
		t.Errorf("expected known, got %q", partial.TargetKnowledge)
	}
}

func TestExtract_OutOfRangeConfidenceRecomputed(t *testing.T) {
	client := &fakeClient{
		structuredResponse: `{
			"outreachType": "inbound",
			"targetKnowledge": null,
			"roles": [],
			"industries": [],
			"locations": [],
			"companies": [],
			"linkedinUrls": [],
			"problemStatement": null,
			"companySize": null,
			"dealType": null,
			"confidence": 250
		}`,
	}
	partial := NewIntentExtractor(client).Extract(context.Background(), "leads come to us", nil, InitContext())
	if partial.Confidence != confidencePerField {
		t.Errorf("expected recomputed confidence %d, got %d", confidencePerField, partial.Confidence)
	}
}

func TestExtract_MalformedJSONFallsBackToRules(t *testing.T) {
	client := &fakeClient{structuredResponse: "sorry, I can't do that"}
	partial := NewIntentExtractor(client).Extract(context.Background(), "we do cold email outreach", nil, InitContext())
	if partial.OutreachType != models.OutreachOutbound {
		t.Errorf("expected rule fallback to classify outbound, got %q", partial.OutreachType)
	}
}

func TestExtract_GenerativeErrorFallsBackToRules(t *testing.T) {
	client := &fakeClient{structuredErr: errors.New("rate limited")}
	partial := NewIntentExtractor(client).Extract(context.Background(), "leads come to us through demo requests", nil, InitContext())
	if partial.OutreachType != models.OutreachInbound {
		t.Errorf("expected rule fallback to classify inbound, got %q", partial.OutreachType)
	}
}

func TestExtract_NilClientUsesRules(t *testing.T) {
	partial := NewIntentExtractor(nil).Extract(context.Background(), "I already have my list of targets", nil, InitContext())
	if partial.TargetKnowledge != models.TargetsKnown {
		t.Errorf("expected known from rules, got %q", partial.TargetKnowledge)
	}
}

func TestExtract_EmptyMessageSkipsBothTiers(t *testing.T) {
	client := &fakeClient{structuredResponse: `{}`}
	partial := NewIntentExtractor(client).Extract(context.Background(), "   ", nil, InitContext())
	if !partial.IsEmpty() {
		t.Errorf("expected empty result for blank message, got %+v", partial)
	}
	if client.structuredCalls != 0 {
		t.Errorf("expected no generative call for blank message, got %d", client.structuredCalls)
	}
}
