package icp

import (
	"reflect"
	"testing"

	"github.com/leadpilot/icpflow/internal/models"
)

func TestMergeFields_Idempotent(t *testing.T) {
	base := InitContext()
	partial := models.PartialFields{
		OutreachType: models.OutreachOutbound,
		Roles:        []string{"Ceos", "Founders"},
		Industries:   []string{"Saas"},
	}

	once := MergeFields(base, partial)
	twice := MergeFields(once, partial)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeFields_ScalarFirstWriterWins(t *testing.T) {
	conv := InitContext()
	conv.OutreachType = models.OutreachInbound
	conv.ProblemStatement = "late invoice payments"

	merged := MergeFields(conv, models.PartialFields{
		OutreachType:     models.OutreachOutbound,
		ProblemStatement: "something else entirely",
		CompanySize:      models.SizeSMB,
	})

	if merged.OutreachType != models.OutreachInbound {
		t.Errorf("expected already-set outreach type to win, got %s", merged.OutreachType)
	}
	if merged.ProblemStatement != "late invoice payments" {
		t.Errorf("expected already-set problem statement to win, got %q", merged.ProblemStatement)
	}
	if merged.CompanySize != models.SizeSMB {
		t.Errorf("expected unset scalar to be filled, got %q", merged.CompanySize)
	}
}

func TestMergeFields_ListUnionCaseInsensitive(t *testing.T) {
	conv := InitContext()
	conv.Roles = []string{"Ceos"}

	merged := MergeFields(conv, models.PartialFields{Roles: []string{"CEOS", "Founders", "founders", "Ceos"}})
	want := []string{"Ceos", "Founders"}
	if !reflect.DeepEqual(merged.Roles, want) {
		t.Errorf("expected %v, got %v", want, merged.Roles)
	}
}

func TestMergeFields_DoesNotAliasSourceLists(t *testing.T) {
	conv := InitContext()
	conv.Companies = []string{"Acme"}

	merged := MergeFields(conv, models.PartialFields{Companies: []string{"Globex"}})
	merged.Companies[0] = "mutated"
	if conv.Companies[0] != "Acme" {
		t.Error("merge aliased the source slice")
	}
}

func TestSummarize_StableGolden(t *testing.T) {
	yes := true
	conv := models.ConversationContext{
		Stage:            models.StageConfirmation,
		Status:           models.StatusAwaitingConfirmation,
		OutreachType:     models.OutreachOutbound,
		TargetKnowledge:  models.TargetsDiscovery,
		ProblemStatement: "late invoice payments for SMBs",
		Roles:            []string{"Ceos", "Founders"},
		Industries:       []string{"Saas", "Fintech"},
		CompanySize:      models.SizeSMB,
		Locations:        []string{"United States"},
		DealType:         models.DealHighTicket,
		Confirmed:        &yes,
	}

	want := "Outreach type: outbound\n" +
		"Target knowledge: discovery\n" +
		"Problem solved: late invoice payments for SMBs\n" +
		"Roles: Ceos, Founders\n" +
		"Industries: Saas, Fintech\n" +
		"Company size: small business (SMB)\n" +
		"Locations: United States\n" +
		"Deal type: high-ticket"

	got := Summarize(conv)
	if got != want {
		t.Errorf("summary mismatch:\nwant:\n%s\ngot:\n%s", want, got)
	}
	if again := Summarize(conv); again != got {
		t.Error("summary is not stable for identical context")
	}
}

func TestSummarize_InboundFields(t *testing.T) {
	ready := false
	conv := models.ConversationContext{
		Stage:            models.StageConfirmation,
		OutreachType:     models.OutreachInbound,
		InboundSource:    "website contact form",
		InboundDataReady: &ready,
		CaptureRules:     "name, email, company",
	}

	want := "Outreach type: inbound\n" +
		"Lead source: website contact form\n" +
		"Lead data ready: no\n" +
		"Capture rules: name, email, company"
	if got := Summarize(conv); got != want {
		t.Errorf("summary mismatch:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestSummarize_EmptyContext(t *testing.T) {
	if got := Summarize(InitContext()); got != "No profile details collected yet." {
		t.Errorf("unexpected empty-context summary: %q", got)
	}
}
