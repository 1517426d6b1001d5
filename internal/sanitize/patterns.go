package sanitize

import "regexp"

// Detection categories, in the order patterns are applied. Credential
// blocks run first so PEM bodies are masked before narrower patterns can
// nibble at their contents.
const (
	CategoryCredentials = "credentials"
	CategoryAPIKeys     = "api_keys"
	CategoryPasswords   = "passwords"
	CategoryPII         = "pii"
	CategoryUserPaths   = "user_paths"
)

// pattern pairs a category with one compiled expression.
type pattern struct {
	category string
	re       *regexp.Regexp
}

// secretPatterns match substrings replaced with Mask.
var secretPatterns = []pattern{
	// Credential blocks.
	{CategoryCredentials, regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`)},
	{CategoryCredentials, regexp.MustCompile(`-----BEGIN CERTIFICATE-----[\s\S]*?-----END CERTIFICATE-----`)},
	{CategoryCredentials, regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqps?)://[^\s:@/]+:[^\s@/]+@\S+`)},

	// Provider-specific keys and tokens.
	{CategoryAPIKeys, regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{20,}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{22,}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{CategoryAPIKeys, regexp.MustCompile(`\bBearer\s+[A-Za-z0-9._~+/-]{16,}=*`)},
	// Generic key=value and token=value forms.
	{CategoryAPIKeys, regexp.MustCompile(`(?i)\b(?:api[_-]?key|access[_-]?key|auth[_-]?token|token)["']?\s*[:=]\s*["']?[A-Za-z0-9_\-./+]{8,}`)},

	// Password and secret assignments.
	{CategoryPasswords, regexp.MustCompile(`(?i)\b(?:password|passwd|pwd|secret|passphrase)["']?\s*[:=]\s*["'][^"']{4,}["']`)},
	{CategoryPasswords, regexp.MustCompile(`(?i)\b(?:password|passwd|secret)["']?\s*[:=]\s*[^\s"'\[]{4,}`)},
	{CategoryPasswords, regexp.MustCompile(`(?i)\b(?:aws_secret_access_key|db_pass(?:word)?|master_key)\b["']?\s*[:=]\s*\S+`)},

	// Personally identifying information.
	{CategoryPII, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{CategoryPII, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{CategoryPII, regexp.MustCompile(`\b\d{4}[- ]\d{4}[- ]\d{4}[- ]\d{4}\b`)},
	{CategoryPII, regexp.MustCompile(`\+\d{1,2}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

// userPathPatterns match local user directories, replaced with
// UserPathMask instead of the generic mask.
var userPathPatterns = []pattern{
	{CategoryUserPaths, regexp.MustCompile(`/(?:home|Users)/[A-Za-z0-9._-]+`)},
	{CategoryUserPaths, regexp.MustCompile(`C:\\Users\\[A-Za-z0-9._-]+`)},
}
