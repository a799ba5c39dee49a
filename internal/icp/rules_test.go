package icp

import (
	"reflect"
	"testing"

	"github.com/leadpilot/icpflow/internal/models"
)

func TestClassifyOutreachType(t *testing.T) {
	tests := []struct {
		message string
		want    models.OutreachType
	}{
		{"I want to reach out to new prospects", models.OutreachOutbound},
		{"we do cold email campaigns", models.OutreachOutbound},
		{"leads come to us through our website form", models.OutreachInbound},
		{"people sign up for demo requests", models.OutreachInbound},
		// Matches both signal classes; the inbound class is checked first.
		{"customers reach out to us to buy", models.OutreachInbound},
		{"I sell software", ""},
	}
	for _, tt := range tests {
		if got := classifyOutreachType(tt.message); got != tt.want {
			t.Errorf("classifyOutreachType(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestClassifyTargetKnowledge_PhrasesBeforeWords(t *testing.T) {
	// "I don't know" must not be short-circuited by the bare "know" match.
	if got := classifyTargetKnowledge("I don't know who yet, help me find them"); got != models.TargetsDiscovery {
		t.Errorf("negation phrase classified as %q, want discovery", got)
	}
	if got := classifyTargetKnowledge("I know exactly who I want to reach"); got != models.TargetsKnown {
		t.Errorf("possessive phrase classified as %q, want known", got)
	}
	if got := classifyTargetKnowledge("we already have a list of accounts"); got != models.TargetsKnown {
		t.Errorf("list phrase classified as %q, want known", got)
	}
	if got := classifyTargetKnowledge("tell me more"); got != "" {
		t.Errorf("neutral message classified as %q, want unset", got)
	}
}

func TestExtractLinkedInURLs_ForcesKnown(t *testing.T) {
	partial := RuleExtractor{}.Extract("here you go: https://www.linkedin.com/in/jane-doe and linkedin.com/company/acme-corp")
	if len(partial.LinkedInURLs) != 2 {
		t.Fatalf("expected 2 urls, got %v", partial.LinkedInURLs)
	}
	if partial.TargetKnowledge != models.TargetsKnown {
		t.Errorf("expected linkedin urls to force known targets, got %q", partial.TargetKnowledge)
	}
}

func TestScanVocabulary_RolesNormalizedAndDeduped(t *testing.T) {
	partial := RuleExtractor{}.Extract("CEOs and founders, mostly the ceo")
	want := []string{"Ceos", "Founders"}
	if !reflect.DeepEqual(partial.Roles, want) {
		t.Errorf("expected %v, got %v", want, partial.Roles)
	}
}

func TestScanVocabulary_MessageOrder(t *testing.T) {
	// Extraction order follows the message, whichever way the user lists things.
	partial := RuleExtractor{}.Extract("CEOs and founders")
	if want := []string{"Ceos", "Founders"}; !reflect.DeepEqual(partial.Roles, want) {
		t.Errorf("expected %v, got %v", want, partial.Roles)
	}

	partial = RuleExtractor{}.Extract("founders and CEOs")
	if want := []string{"Founders", "Ceos"}; !reflect.DeepEqual(partial.Roles, want) {
		t.Errorf("expected %v, got %v", want, partial.Roles)
	}

	partial = RuleExtractor{}.Extract("fintech and saas companies")
	if want := []string{"Fintech", "Saas"}; !reflect.DeepEqual(partial.Industries, want) {
		t.Errorf("expected %v, got %v", want, partial.Industries)
	}
}

func TestScanVocabulary_WordBoundaries(t *testing.T) {
	// "oceos" must not match the "ceos" entry.
	partial := RuleExtractor{}.Extract("we sell to oceos collective")
	if len(partial.Roles) != 0 {
		t.Errorf("expected no roles from substring match, got %v", partial.Roles)
	}
}

func TestRuleExtract_IndustriesAndLocations(t *testing.T) {
	partial := RuleExtractor{}.Extract("mostly SaaS and fintech companies in the United States and Canada")
	wantIndustries := []string{"Saas", "Fintech"}
	if !reflect.DeepEqual(partial.Industries, wantIndustries) {
		t.Errorf("industries: expected %v, got %v", wantIndustries, partial.Industries)
	}
	wantLocations := []string{"United States", "Canada"}
	if !reflect.DeepEqual(partial.Locations, wantLocations) {
		t.Errorf("locations: expected %v, got %v", wantLocations, partial.Locations)
	}
}

func TestClassifyCompanySizeAndDealType(t *testing.T) {
	if got := classifyCompanySize("mostly enterprise accounts"); got != models.SizeEnterprise {
		t.Errorf("expected enterprise, got %q", got)
	}
	if got := classifyCompanySize("small businesses really"); got != models.SizeSMB {
		t.Errorf("expected smb, got %q", got)
	}
	if got := classifyDealType("high ticket deals with a long sales cycle"); got != models.DealHighTicket {
		t.Errorf("expected high_ticket, got %q", got)
	}
	if got := classifyDealType("self-serve, low touch"); got != models.DealLowTicket {
		t.Errorf("expected low_ticket, got %q", got)
	}
}

func TestClassifyYesNo(t *testing.T) {
	tests := []struct {
		message string
		want    string // "yes", "no", or "nil"
	}{
		{"yes", "yes"},
		{"Yep, looks good!", "yes"},
		{"sounds good to me", "yes"},
		{"no", "no"},
		{"nope, change the industries", "no"},
		{"not quite right", "no"},
		{"maybe", "nil"},
		{"what does this mean?", "nil"},
		{"", "nil"},
	}
	for _, tt := range tests {
		got := ClassifyYesNo(tt.message)
		switch tt.want {
		case "nil":
			if got != nil {
				t.Errorf("ClassifyYesNo(%q) = %v, want nil", tt.message, *got)
			}
		case "yes":
			if got == nil || !*got {
				t.Errorf("ClassifyYesNo(%q) = %v, want yes", tt.message, got)
			}
		case "no":
			if got == nil || *got {
				t.Errorf("ClassifyYesNo(%q) = %v, want no", tt.message, got)
			}
		}
	}
}

func TestClassifyYesNo_AnchoredAtStart(t *testing.T) {
	// "correct" must match only at the start, not buried mid-sentence.
	if got := ClassifyYesNo("I am not sure this is correct"); got != nil {
		t.Errorf("expected nil for mid-sentence match, got %v", *got)
	}
}

func TestIsGreeting(t *testing.T) {
	for _, msg := range []string{"hi", "Hello!", "hey", "good morning"} {
		if !IsGreeting(msg) {
			t.Errorf("expected %q to be a greeting", msg)
		}
	}
	for _, msg := range []string{"hi, we do cold outreach", "help me find customers"} {
		if IsGreeting(msg) {
			t.Errorf("did not expect %q to be a greeting", msg)
		}
	}
}

func TestScoreConfidence_CappedAndDiagnosticOnly(t *testing.T) {
	partial := RuleExtractor{}.Extract("outbound cold email to CEOs at SaaS startups in London, high ticket, I know my list: linkedin.com/in/someone")
	if partial.Confidence <= 0 || partial.Confidence > confidenceCap {
		t.Errorf("confidence out of range: %d", partial.Confidence)
	}
}

func TestSplitListAnswer(t *testing.T) {
	got := splitListAnswer("Acme Corp, Globex and Initech")
	want := []string{"Acme Corp", "Globex", "Initech"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	for _, msg := range []string{"", "I don't know", "yes", "what do you mean?", "hi"} {
		if items := splitListAnswer(msg); items != nil {
			t.Errorf("expected nil for %q, got %v", msg, items)
		}
	}

	long := "this is a long rambling sentence about our whole go to market strategy that is definitely not a list of anything"
	if items := splitListAnswer(long); items != nil {
		t.Errorf("expected nil for prose, got %v", items)
	}
}
