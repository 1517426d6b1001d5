package rules

import "github.com/gobwas/glob"

// Category names consulted by the permission evaluators. Deployment
// overrides replace the pattern list of a category wholesale, keyed by
// these names.
const (
	CategorySensitiveFiles    = "sensitive_files"
	CategorySystemFiles       = "system_files"
	CategoryDangerousCommands = "dangerous_commands"
	CategorySuspiciousDomains = "suspicious_domains"
	CategoryCriticalConfigs   = "critical_configs"
	CategoryRiskyCommands     = "risky_commands"
	CategoryDocumentation     = "documentation"
	CategorySafeCommands      = "safe_commands"
	CategorySafeGlobs         = "safe_globs"
)

// defaultDenyPatterns match tool inputs that must never proceed.
var defaultDenyPatterns = map[string][]string{
	CategorySensitiveFiles: {
		`\.env(\.[\w-]+)?$`,
		`id_rsa`,
		`id_ed25519`,
		`id_ecdsa`,
		`\.ssh/`,
		`\.aws/credentials`,
		`\.gnupg/`,
		`\.kube/config`,
		`\.docker/config\.json`,
		`\.netrc`,
		`\.npmrc`,
		`\.git-credentials`,
		`\.pgpass`,
		`secrets?\.(json|ya?ml|toml)$`,
		`\.pem$`,
		`\.p12$`,
		`\.keystore$`,
	},
	CategorySystemFiles: {
		`^/etc/`,
		`^/sys/`,
		`^/proc/`,
		`^/boot/`,
		`^/dev/`,
		`^/bin/`,
		`^/sbin/`,
		`^/usr/(bin|sbin|lib)/`,
		`^/var/(log|spool)/`,
		`^/Library/`,
		`^C:\\Windows\\`,
	},
	CategoryDangerousCommands: {
		`\brm\s+(-[a-z]*\s+)*-?[a-z]*[rf][a-z]*[rf][a-z]*\s+[/~]`,
		`\brm\s+-(rf|fr)\b.*\s[/~]\s*$`,
		`\bmkfs(\.\w+)?\b`,
		`\bdd\s+if=.*of=/dev/`,
		`>\s*/dev/sd[a-z]`,
		`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`,
		`\bchmod\s+(-R\s+)?777\s+/\s*$`,
		`\bchown\s+-R\s+\S+\s+/\s*$`,
		`\b(shutdown|reboot|poweroff|halt)\b`,
		`\bcurl\b[^|;]*\|\s*(ba|z)?sh\b`,
		`\bwget\b[^|;]*\|\s*(ba|z)?sh\b`,
		`\bDROP\s+(TABLE|DATABASE)\b`,
		`\bTRUNCATE\s+TABLE\b`,
		`\bgit\s+push\s+.*--force\s+\S+\s+(main|master)\b`,
	},
	CategorySuspiciousDomains: {
		`pastebin\.com`,
		`transfer\.sh`,
		`ngrok\.(io|app)`,
		`webhook\.site`,
		`requestbin`,
		`grabify`,
		`https?://(\d{1,3}\.){3}\d{1,3}`,
		`\.onion\b`,
	},
}

// defaultAskPatterns match tool inputs that need confirmation.
var defaultAskPatterns = map[string][]string{
	CategoryCriticalConfigs: {
		`(^|/)package(-lock)?\.json$`,
		`(^|/)Dockerfile(\.\w+)?$`,
		`(^|/)docker-compose\.ya?ml$`,
		`\.github/workflows/`,
		`\.gitlab-ci\.yml$`,
		`(^|/)go\.(mod|sum)$`,
		`(^|/)Makefile$`,
		`(^|/)Cargo\.toml$`,
		`(^|/)pyproject\.toml$`,
		`(^|/)requirements\.txt$`,
		`(^|/)tsconfig\.json$`,
		`\.tf$`,
	},
	CategoryRiskyCommands: {
		`^\s*sudo\b`,
		`\bgit\s+push\s+.*--force`,
		`\bnpm\s+publish\b`,
		`\bterraform\s+(apply|destroy)\b`,
		`\bkubectl\s+(apply|delete|drain)\b`,
		`\bdocker\s+(push|rmi?)\b`,
		`\bhelm\s+(install|upgrade|uninstall|delete)\b`,
		`\bgh\s+release\b`,
		`\bdeploy\b`,
		`\bchmod\s+777\b`,
		`\bcurl\b.*\s-(X\s*)?(POST|PUT|DELETE)\b`,
	},
}

// defaultAutoApprovePatterns match tool inputs that are safe to allow
// without confirmation.
var defaultAutoApprovePatterns = map[string][]string{
	CategoryDocumentation: {
		`\.(md|markdown|rst|adoc|txt)$`,
		`(^|/)README(\.\w+)?$`,
		`(^|/)LICENSE(\.\w+)?$`,
		`(^|/)CHANGELOG(\.\w+)?$`,
		`(^|/)docs?/`,
	},
	CategorySafeCommands: {
		`^git\s+(status|diff|log|show|branch)\b`,
		`^ls\b`,
		`^pwd$`,
		`^whoami$`,
		`^date\b`,
		`^echo\s`,
		`^which\s`,
		`^wc\b`,
		`^go\s+(version|env)\b`,
	},
	CategorySafeGlobs: {
		`^[\w*/.\-]+\.(go|js|jsx|ts|tsx|py|rb|rs|java|c|h|cpp|md|json|ya?ml|toml)$`,
	},
}

// PathMatcher matches file paths against a fixed set of glob patterns.
// Patterns follow the gobwas/glob syntax with '/' as the separator, so
// `**/.aws/**` matches at any depth.
type PathMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewPathMatcher compiles the given glob patterns. Panics on a malformed
// pattern; the matchers below are package constants, so a bad pattern is a
// programming error caught at init.
func NewPathMatcher(patterns []string) *PathMatcher {
	m := &PathMatcher{patterns: patterns}
	for _, pattern := range patterns {
		m.globs = append(m.globs, glob.MustCompile(pattern, '/'))
	}
	return m
}

// Match returns the first pattern matching path, or false if none match.
func (m *PathMatcher) Match(path string) (string, bool) {
	for i, g := range m.globs {
		if g.Match(path) {
			return m.patterns[i], true
		}
	}
	return "", false
}

// SensitivePathGlobs complements the sensitive_files regex category with
// structural path patterns, so directory-shaped rules like `**/.aws/**`
// keep working even when a deployment overrides the regex category.
var SensitivePathGlobs = NewPathMatcher([]string{
	"**/.env",
	"**/.env.*",
	".env",
	".env.*",
	"**/.ssh/**",
	"**/id_rsa*",
	"**/id_ed25519*",
	"**/.aws/**",
	"**/.gnupg/**",
	"**/.kube/config",
	"**/.docker/config.json",
	"**/*.pem",
	"**/.netrc",
	"**/.npmrc",
	"**/secrets.*",
})
