package memory

import "regexp"

// RedactedPlaceholder replaces a matched secret shape in retained
// content. Distinct from trace.RedactedPlaceholder: this pass scans raw
// text for secret-shaped substrings rather than redacting by map key.
const RedactedPlaceholder = "[REDACTED]"

// secretPatterns is a fixed list of regexes matching common secret
// shapes: vendor API keys, bearer tokens, password key/value pairs, and
// AWS access keys (spec.md §4.8).
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),                           // OpenAI/Anthropic-style secret key
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]{10,}`),             // bearer token
	regexp.MustCompile(`(?i)(api[_-]?key)\s*[:=]\s*['"]?[A-Za-z0-9._\-]{8,}['"]?`),
	regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"]?\S{4,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`), // AWS access key ID
	regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), // JWT
}

// RedactSecrets replaces every match of the fixed secret-shape regex
// list in content with RedactedPlaceholder.
func RedactSecrets(content string) string {
	out := content
	for _, re := range secretPatterns {
		out = re.ReplaceAllString(out, RedactedPlaceholder)
	}
	return out
}
