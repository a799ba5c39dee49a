// Package icp deterministic extraction rules: the fallback tier that turns an
// utterance into partial fields without any generative capability.
package icp

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leadpilot/icpflow/internal/models"
)

// Confidence scoring for the fallback tier. Diagnostics only; control flow is
// driven by field presence, never by confidence.
const (
	confidencePerField = 15
	confidenceCap      = 95
)

var (
	inboundSignalRe = regexp.MustCompile(`(?i)\b(inbound|incoming\s+leads?|leads?\s+(?:come|coming|reach)\s|reach\s+out\s+to\s+(?:us|me)|contact\s+(?:us|me)|form\s+fills?|website\s+visitors?|sign[\s-]?ups?|capture|demo\s+requests?)`)

	outboundSignalRe = regexp.MustCompile(`(?i)\b(outbound|cold\s+(?:email|emails|call|calls|outreach|dm)|reach\s+out\s+to|reaching\s+out|prospect(?:s|ing)?|new\s+(?:leads|customers|clients|prospects)|find\s+(?:new\s+)?(?:leads|customers|clients|buyers)|go\s+after|target(?:ing)?\s)`)

	// Phrase-level checks run before single-word boundary checks so that
	// "I don't know" is never short-circuited by a bare "know" match.
	discoveryPhraseRe = regexp.MustCompile(`(?i)\b(don'?t\s+know|do\s+not\s+know|not\s+sure|no\s+idea|unsure|help\s+me\s+(?:find|figure|identify)|figure\s+(?:it\s+)?out|discover|who\s+(?:should|to)\s+(?:i|we))`)

	knownPhraseRe = regexp.MustCompile(`(?i)\b(i\s+(?:already\s+)?know|we\s+(?:already\s+)?know|already\s+have|i\s+have\s+(?:a\s+)?(?:list|names|specific)|my\s+list|our\s+list|specific\s+(?:companies|people|accounts|targets)|have\s+(?:them|targets)\s+in\s+mind)`)

	knownWordRe     = regexp.MustCompile(`(?i)\bknown?\b`)
	discoveryWordRe = regexp.MustCompile(`(?i)\b(discovery|find)\b`)

	linkedinURLRe = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/(?:in|company|school)/[A-Za-z0-9\-_%.~]+/?`)

	yesRe = regexp.MustCompile(`^(yes|yep|yeah|yup|sure|ok(?:ay)?|correct|right|confirm(?:ed)?|looks?\s+good|sounds?\s+good|perfect|exactly|that'?s\s+(?:right|correct|it)|go\s+ahead|let'?s\s+go|absolutely|definitely|👍)\b`)

	noRe = regexp.MustCompile(`^(no|nope|nah|not\s+(?:quite|really|correct|right|exactly)|wrong|incorrect|change|edit|fix|actually|hold\s+on|wait)\b`)

	greetingRe = regexp.MustCompile(`(?i)^(hi|hiya|hello|hey|yo|howdy|greetings|good\s+(?:morning|afternoon|evening)|start|begin|let'?s\s+start)\b[\s!.,]*$`)
)

// Gazetteers for entity scanning. Entry order carries no meaning; scanning
// sorts hits by message offset and breaks ties toward the longest surface form.
var (
	roleVocabulary = []string{
		"chief executive officer", "chief technology officer", "chief financial officer",
		"chief marketing officer", "chief operating officer", "chief revenue officer",
		"vp of sales", "vp of marketing", "vp of engineering", "vp of product",
		"head of sales", "head of marketing", "head of growth", "head of engineering",
		"head of people", "head of operations",
		"sales manager", "marketing manager", "product manager", "engineering manager",
		"account executive", "sales director", "marketing director", "managing director",
		"co-founder", "cofounder", "founders", "founder", "owners", "owner",
		"ceos", "ceo", "ctos", "cto", "cfos", "cfo", "cmos", "cmo", "coos", "coo", "cros", "cro",
		"president", "partner", "principal", "director", "recruiter",
	}

	industryVocabulary = []string{
		"saas", "software", "fintech", "financial services", "finance", "banking",
		"insurance", "healthcare", "health care", "biotech", "pharma", "medtech",
		"real estate", "proptech", "construction", "manufacturing", "logistics",
		"supply chain", "e-commerce", "ecommerce", "retail", "hospitality", "travel",
		"education", "edtech", "legal", "law firms", "accounting", "consulting",
		"marketing agencies", "agencies", "recruiting", "staffing", "cybersecurity",
		"telecom", "energy", "automotive", "media", "gaming", "nonprofit",
	}

	locationVocabulary = []string{
		"united states", "usa", "u.s.", "north america", "united kingdom", "uk",
		"canada", "australia", "new zealand", "germany", "france", "spain",
		"netherlands", "nordics", "dach", "europe", "emea", "apac", "latam",
		"india", "singapore", "japan", "brazil", "mexico",
		"new york", "san francisco", "bay area", "los angeles", "chicago", "boston",
		"austin", "seattle", "miami", "denver", "london", "berlin", "paris",
		"amsterdam", "toronto", "vancouver", "sydney", "dubai", "tel aviv",
	}
)

// RuleExtractor is the deterministic extraction tier: fixed ordered pattern
// and gazetteer matching over a single utterance.
type RuleExtractor struct{}

// Extract scans the message with the fixed rule set and returns whatever
// fields it can recover. It never guesses: unmatched fields stay unset.
func (RuleExtractor) Extract(message string) models.PartialFields {
	var partial models.PartialFields

	partial.OutreachType = classifyOutreachType(message)
	partial.TargetKnowledge = classifyTargetKnowledge(message)
	partial.LinkedInURLs = extractLinkedInURLs(message)
	// A pasted LinkedIn URL is direct evidence the user knows their targets.
	if len(partial.LinkedInURLs) > 0 {
		partial.TargetKnowledge = models.TargetsKnown
	}
	partial.Roles = scanVocabulary(message, roleVocabulary)
	partial.Industries = scanVocabulary(message, industryVocabulary)
	partial.Locations = scanVocabulary(message, locationVocabulary)
	partial.CompanySize = classifyCompanySize(message)
	partial.DealType = classifyDealType(message)

	partial.Confidence = scoreConfidence(partial)
	return partial
}

// classifyOutreachType checks the inbound signal class before the outbound
// one; the first class that matches wins, and neither matching leaves the
// field unset. Outbound phrasing often embeds inbound-shaped fragments
// ("reach out to us"), so the inbound class takes precedence.
func classifyOutreachType(message string) models.OutreachType {
	if inboundSignalRe.MatchString(message) {
		return models.OutreachInbound
	}
	if outboundSignalRe.MatchString(message) {
		return models.OutreachOutbound
	}
	return ""
}

// classifyTargetKnowledge evaluates phrase-level checks before single-word
// boundary checks; ties default to unset, never guessed.
func classifyTargetKnowledge(message string) models.TargetKnowledge {
	discoveryPhrase := discoveryPhraseRe.MatchString(message)
	knownPhrase := knownPhraseRe.MatchString(message)
	switch {
	case discoveryPhrase && !knownPhrase:
		return models.TargetsDiscovery
	case knownPhrase && !discoveryPhrase:
		return models.TargetsKnown
	case discoveryPhrase && knownPhrase:
		return ""
	}

	known := knownWordRe.MatchString(message)
	discovery := discoveryWordRe.MatchString(message)
	switch {
	case known && !discovery:
		return models.TargetsKnown
	case discovery && !known:
		return models.TargetsDiscovery
	default:
		return ""
	}
}

// extractLinkedInURLs pulls URL-shaped LinkedIn references out of the message.
func extractLinkedInURLs(message string) []string {
	matches := linkedinURLRe.FindAllString(message, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		cleaned := strings.TrimRight(strings.TrimSpace(m), "/.,;")
		key := strings.ToLower(cleaned)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cleaned)
	}
	return out
}

// scanVocabulary matches gazetteer entries against the lower-cased message,
// normalizes hits to Title Case, and dedupes. Output order follows the
// message, not the gazetteer: hits are sorted by their first match offset, so
// "CEOs and founders" yields Ceos before Founders.
func scanVocabulary(message string, vocabulary []string) []string {
	lowered := strings.ToLower(message)
	type hit struct {
		pos  int
		term string
	}
	var hits []hit
	for _, term := range vocabulary {
		if pos := termIndex(lowered, term); pos >= 0 {
			hits = append(hits, hit{pos: pos, term: term})
		}
	}
	// Ties at the same offset resolve to the longest surface form.
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return len(hits[i].term) > len(hits[j].term)
	})
	seen := make(map[string]bool, len(hits))
	var out []string
	for _, h := range hits {
		normalized := titleCase(h.term)
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		// Singular/plural gazetteer pairs ("ceo"/"ceos") collapse to the
		// form matched earliest.
		if strings.HasSuffix(key, "s") && seen[strings.TrimSuffix(key, "s")] {
			continue
		}
		if seen[key+"s"] {
			continue
		}
		seen[key] = true
		out = append(out, normalized)
	}
	return out
}

// termIndex returns the first offset where term appears in lowered text on
// word boundaries, or -1 when it does not.
func termIndex(lowered, term string) int {
	idx := 0
	for {
		i := strings.Index(lowered[idx:], term)
		if i < 0 {
			return -1
		}
		start := idx + i
		end := start + len(term)
		beforeOK := start == 0 || !isWordChar(lowered[start-1])
		afterOK := end == len(lowered) || !isWordChar(lowered[end])
		if beforeOK && afterOK {
			return start
		}
		idx = start + 1
		if idx >= len(lowered) {
			return -1
		}
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// titleCase normalizes an extracted value to Title Case.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}

func classifyCompanySize(message string) models.CompanySize {
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "enterprise") || strings.Contains(lowered, "large compan") || strings.Contains(lowered, "fortune 500") || strings.Contains(lowered, "big compan"):
		return models.SizeEnterprise
	case strings.Contains(lowered, "mid-market") || strings.Contains(lowered, "mid market") || strings.Contains(lowered, "midsize") || strings.Contains(lowered, "mid-size") || strings.Contains(lowered, "medium"):
		return models.SizeMidMarket
	case strings.Contains(lowered, "smb") || strings.Contains(lowered, "small business") || strings.Contains(lowered, "small compan") || strings.Contains(lowered, "small and medium"):
		return models.SizeSMB
	case strings.Contains(lowered, "startup") || strings.Contains(lowered, "start-up") || strings.Contains(lowered, "early stage") || strings.Contains(lowered, "early-stage"):
		return models.SizeStartup
	default:
		return ""
	}
}

func classifyDealType(message string) models.DealType {
	lowered := strings.ToLower(message)
	switch {
	case strings.Contains(lowered, "high ticket") || strings.Contains(lowered, "high-ticket") || strings.Contains(lowered, "enterprise deal") || strings.Contains(lowered, "long sales cycle") || strings.Contains(lowered, "big deal") || strings.Contains(lowered, "high value"):
		return models.DealHighTicket
	case strings.Contains(lowered, "low ticket") || strings.Contains(lowered, "low-ticket") || strings.Contains(lowered, "self-serve") || strings.Contains(lowered, "self serve") || strings.Contains(lowered, "transactional") || strings.Contains(lowered, "short sales cycle") || strings.Contains(lowered, "volume"):
		return models.DealLowTicket
	default:
		return ""
	}
}

// ClassifyYesNo classifies a confirmation answer with anchored patterns at the
// start of the trimmed, lower-cased message. Unmatched returns nil and the
// caller must re-prompt, never guess.
func ClassifyYesNo(message string) *bool {
	trimmed := strings.ToLower(strings.TrimSpace(message))
	if trimmed == "" {
		return nil
	}
	if yesRe.MatchString(trimmed) {
		v := true
		return &v
	}
	if noRe.MatchString(trimmed) {
		v := false
		return &v
	}
	return nil
}

// IsGreeting reports whether the message is a greeting-shaped opener rather
// than an answer carrying intent.
func IsGreeting(message string) bool {
	return greetingRe.MatchString(strings.TrimSpace(message))
}

func scoreConfidence(p models.PartialFields) int {
	score := 0
	if p.OutreachType != "" {
		score += confidencePerField
	}
	if p.TargetKnowledge != "" {
		score += confidencePerField
	}
	if len(p.LinkedInURLs) > 0 {
		score += confidencePerField
	}
	if len(p.Roles) > 0 {
		score += confidencePerField
	}
	if len(p.Industries) > 0 {
		score += confidencePerField
	}
	if len(p.Locations) > 0 {
		score += confidencePerField
	}
	if p.CompanySize != "" {
		score += confidencePerField
	}
	if p.DealType != "" {
		score += confidencePerField
	}
	if score > confidenceCap {
		score = confidenceCap
	}
	return score
}
