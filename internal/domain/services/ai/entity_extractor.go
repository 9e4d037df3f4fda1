package ai

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"honeypot-lab/internal/domain/models"
)

// IntelCategory names a field of models.ExtractedIntel
type IntelCategory string

const (
	IntelUPI    IntelCategory = "upi_ids"
	IntelBank   IntelCategory = "bank_accounts"
	IntelPhone  IntelCategory = "phone_numbers"
	IntelURL    IntelCategory = "urls"
	IntelCrypto IntelCategory = "crypto_wallets"
	IntelEmail  IntelCategory = "emails"
	IntelIP     IntelCategory = "ip_addresses"
)

// knownUPIHandles is the allow-list of payment provider suffixes
var knownUPIHandles = map[string]struct{}{
	"paytm":      {},
	"ybl":        {},
	"oksbi":      {},
	"okaxis":     {},
	"okicici":    {},
	"okhdfcbank": {},
	"ibl":        {},
	"upi":        {},
	"axl":        {},
	"waicici":    {},
	"yapl":       {},
}

var bankContextKeywords = []string{"account", "a/c", "ac no", "acc", "bank", "ifsc", "transfer"}

const bankContextWindow = 50

// urlTail is the character class a URL body may contain
const urlTail = "[^\\s<>\"{}|\\\\^`\\[\\]]"

// extractionRule is one pattern of one category. normalize rewrites a raw match
// and may reject it by returning ""; accept sees the whole text and the match
// location for context checks.
type extractionRule struct {
	category  IntelCategory
	pattern   *regexp.Regexp
	normalize func(match string) string
	accept    func(text string, loc []int, value string) bool
}

var extractionRules = []extractionRule{
	{
		category: IntelUPI,
		pattern:  regexp.MustCompile(`(?i)\b[a-z0-9._-]{2,256}@[a-z]{2,64}\b`),
		normalize: func(m string) string {
			if !IsKnownUPIHandle(m) {
				return ""
			}
			return m
		},
	},

	// Phone shapes; the candidate survives only as a bare 8-15 digit string.
	{category: IntelPhone, pattern: regexp.MustCompile(`\+?\d{1,4}[-.\s]?\(?\d{1,4}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,9}`), normalize: normalizePhone},
	{category: IntelPhone, pattern: regexp.MustCompile(`\b[6-9]\d{9}\b`), normalize: normalizePhone},
	{category: IntelPhone, pattern: regexp.MustCompile(`\+91[-.\s]?[6-9]\d{9}\b`), normalize: normalizePhone},
	{category: IntelPhone, pattern: regexp.MustCompile(`\b\d{3}[-.\s]\d{3}[-.\s]\d{4}\b`), normalize: normalizePhone},

	{
		category: IntelBank,
		pattern:  regexp.MustCompile(`\b\d{9,18}\b`),
		accept: func(text string, _ []int, value string) bool {
			return HasBankingContext(text, value)
		},
	},

	// Legacy base58 and bech32 Bitcoin; bech32 runs longer than 34 characters.
	{category: IntelCrypto, pattern: regexp.MustCompile(`\b[13][a-zA-Z0-9]{25,34}\b`)},
	{category: IntelCrypto, pattern: regexp.MustCompile(`\bbc1[a-zA-Z0-9]{25,59}\b`)},
	{category: IntelCrypto, pattern: regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)},
	{category: IntelCrypto, pattern: regexp.MustCompile(`\b[LM][a-zA-Z0-9]{25,33}\b`)},
	{category: IntelCrypto, pattern: regexp.MustCompile(`\bD[a-zA-Z0-9]{32,33}\b`)},

	{category: IntelURL, pattern: regexp.MustCompile(`(?i)https?://` + urlTail + `+`), normalize: normalizeURL},
	{category: IntelURL, pattern: regexp.MustCompile(`(?i)www\.` + urlTail + `+`), normalize: normalizeURL},
	{
		category:  IntelURL,
		pattern:   regexp.MustCompile(`(?i)\b[a-z0-9-]+\.(?:com|net|org|info|xyz|tk|ml|ga|cf|gq|top|online|site|live|click|link)` + urlTail + `*`),
		normalize: normalizeURL,
	},

	{category: IntelEmail, pattern: regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)},

	{
		category: IntelIP,
		pattern:  regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		normalize: func(m string) string {
			if !IsValidIPv4(m) {
				return ""
			}
			return m
		},
	},
}

// EntityExtractor pulls payment handles, accounts, contacts and links out of
// free text. It holds no state and is safe for concurrent use.
type EntityExtractor struct {
	rules []extractionRule
}

// NewEntityExtractor creates an extractor over the built-in rule table
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{rules: extractionRules}
}

type candidate struct {
	start, end int
	value      string
}

// Extract applies every rule to text. Values within a category are unique
// and ordered by where they first appear.
func (e *EntityExtractor) Extract(text string) models.ExtractedIntel {
	found := make(map[IntelCategory][]candidate)

	for _, rule := range e.rules {
		for _, loc := range rule.pattern.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if rule.normalize != nil {
				value = rule.normalize(value)
			}
			if value == "" {
				continue
			}
			if rule.accept != nil && !rule.accept(text, loc, value) {
				continue
			}
			if rule.category == IntelURL && coveredBy(found[IntelURL], loc) {
				continue
			}
			found[rule.category] = append(found[rule.category], candidate{start: loc[0], end: loc[1], value: value})
		}
	}

	intel := models.ExtractedIntel{
		UPIIDs:        ordered(found[IntelUPI]),
		BankAccounts:  ordered(found[IntelBank]),
		PhoneNumbers:  ordered(found[IntelPhone]),
		URLs:          ordered(found[IntelURL]),
		CryptoWallets: ordered(found[IntelCrypto]),
		IPAddresses:   ordered(found[IntelIP]),
	}

	upis := make(map[string]struct{}, len(intel.UPIIDs))
	for _, u := range intel.UPIIDs {
		upis[u] = struct{}{}
	}
	for _, email := range ordered(found[IntelEmail]) {
		if _, isUPI := upis[email]; isUPI {
			continue
		}
		intel.Emails = append(intel.Emails, email)
	}

	return intel
}

// coveredBy reports whether loc lies inside a link already taken by an
// earlier URL rule, so www.x.com inside https://www.x.com is not reported twice.
func coveredBy(existing []candidate, loc []int) bool {
	for _, c := range existing {
		if loc[0] >= c.start && loc[1] <= c.end {
			return true
		}
	}
	return false
}

func ordered(cands []candidate) []string {
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].start < cands[j].start })

	seen := make(map[string]struct{}, len(cands))
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		if _, ok := seen[c.value]; ok {
			continue
		}
		seen[c.value] = struct{}{}
		out = append(out, c.value)
	}
	return out
}

// IsKnownUPIHandle reports whether the provider part of a name@provider
// string is a recognised payment handle.
func IsKnownUPIHandle(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at < 0 || at == len(s)-1 {
		return false
	}
	_, ok := knownUPIHandles[strings.ToLower(s[at+1:])]
	return ok
}

// HasBankingContext reports whether a banking keyword occurs within 50
// characters of the first occurrence of number in text.
func HasBankingContext(text, number string) bool {
	pos := strings.Index(text, number)
	if pos < 0 {
		return false
	}

	// Measured in characters; scam text is often in multi-byte scripts.
	before := []rune(text[:pos])
	if len(before) > bankContextWindow {
		before = before[len(before)-bankContextWindow:]
	}
	after := []rune(text[pos+len(number):])
	if len(after) > bankContextWindow {
		after = after[:bankContextWindow]
	}

	window := strings.ToLower(string(before) + number + string(after))
	for _, kw := range bankContextKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}

// IsValidIPv4 reports whether s is a dotted quad with every octet in 0-255
func IsValidIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// normalizePhone strips separators and keeps bare digit strings of
// plausible phone length. A leading + is not a separator, so international
// forms only survive through their national match.
func normalizePhone(raw string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', '(', ')', ' ', '\t', '\n', '\r', '\f', '\v':
			return -1
		}
		return r
	}, raw)

	if len(clean) < 8 || len(clean) > 15 {
		return ""
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return clean
}

func normalizeURL(raw string) string {
	u := strings.TrimRight(raw, ".,;:'\")")
	if u == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(u), "www.") {
		u = "http://" + u
	}
	return u
}
