package analysis

import "regexp"

// The taxonomies below are data, not code: the analyzer walks these tables
// in order, so swapping a ruleset never touches the extraction logic.
// All patterns are word-boundary and case-insensitive, compiled once at
// package init so analyses stay deterministic for identical inputs.

type topicRule struct {
	pattern *regexp.Regexp
	label   string
	weight  float64
}

type entityRule struct {
	pattern *regexp.Regexp
	etype   string
}

type intentRule struct {
	pattern *regexp.Regexp
	name    string
	weight  float64
}

var topicRules = []topicRule{
	{regexp.MustCompile(`(?i)\b(debug|debugging|bug|issue|problem|broken|crash|crashing|exception|stack trace|traceback|segfault)\b`), "debugging", 1.0},
	{regexp.MustCompile(`(?i)\b(architecture|architectural|system design|design pattern|structure|modular|scalab\w+|decoupl\w+)\b`), "architecture", 0.9},
	{regexp.MustCompile(`(?i)\b(implement|implementing|implementation|build|building|creating|adding|writing)\b`), "implementation", 0.7},
	{regexp.MustCompile(`(?i)\b(test|tests|testing|unit test|integration test|coverage|mock|mocks|assertion|fixture)\b`), "testing", 0.9},
	{regexp.MustCompile(`(?i)\b(deploy|deploying|deployment|release|rollout|rollback|production|staging)\b`), "deployment", 0.9},
	{regexp.MustCompile(`(?i)\b(refactor|refactoring|cleanup|restructure|restructuring|rework|simplify|tech debt)\b`), "refactoring", 0.9},
	{regexp.MustCompile(`(?i)\b(database|databases|sql|sqlite|postgres|postgresql|mysql|mongodb|redis|schema|migration|index|indexes)\b`), "database", 0.9},
	{regexp.MustCompile(`(?i)\b(api|apis|endpoint|endpoints|rest|graphql|grpc|webhook|json-rpc|jsonrpc)\b`), "api", 0.8},
	{regexp.MustCompile(`(?i)\b(frontend|front-end|ui|ux|css|html|react|vue|angular|component|browser|dom)\b`), "frontend", 0.8},
	{regexp.MustCompile(`(?i)\b(backend|back-end|server|service|services|microservice|worker|daemon|queue)\b`), "backend", 0.8},
	{regexp.MustCompile(`(?i)\b(security|auth|authentication|authorization|token|tokens|credential|credentials|vulnerability|encrypt\w*)\b`), "security", 0.9},
	{regexp.MustCompile(`(?i)\b(docker|kubernetes|k8s|ci|cd|pipeline|terraform|ansible|helm|infrastructure)\b`), "devops", 0.8},
	{regexp.MustCompile(`(?i)\b(memory|memories|context window|recall|remember|forget|retention|knowledge base)\b`), "memory-management", 0.8},
	{regexp.MustCompile(`(?i)\b(integrate|integrating|integration|connect|connecting|sync|bridge|plugin|mcp)\b`), "integration", 0.7},
	{regexp.MustCompile(`(?i)\b(llm|llms|ai|claude|gpt|model|prompt|prompts|embedding|embeddings|agent|agents)\b`), "ai-integration", 0.8},
}

var entityRules = []entityRule{
	{regexp.MustCompile(`(?i)\b(javascript|typescript|python|golang|rust|java|ruby|php|kotlin|swift|elixir)\b`), "language"},
	{regexp.MustCompile(`(?i)\b(react|vue|angular|svelte|django|flask|fastapi|rails|spring|express|nextjs|cobra|chi|gin|echo|fiber)\b`), "framework"},
	{regexp.MustCompile(`(?i)\b(sqlite|sqlite-vec|postgres|postgresql|mysql|mariadb|mongodb|redis|elasticsearch|dynamodb|chromadb)\b`), "database"},
	{regexp.MustCompile(`(?i)\b(git|docker|kubernetes|npm|yarn|pnpm|pip|cargo|webpack|vite|pytest|jest|prometheus|grafana)\b`), "tool"},
	{regexp.MustCompile(`(?i)\b(aws|azure|gcp|lambda|s3|ec2|cloudflare|vercel|netlify|heroku)\b`), "cloud"},
	{regexp.MustCompile(`(?i)\b([a-z][a-z0-9]*(?:-[a-z0-9]+)+)\b`), "project"},
}

var intentRules = []intentRule{
	{regexp.MustCompile(`(?i)\b(how do|how does|how can|how should|what is|what are|explain|understand|learn|learning|tutorial|example of)\b`), "learning", 0.8},
	{regexp.MustCompile(`(?i)\b(debug|fix|fixing|solve|resolve|troubleshoot|error|issue|problem|broken|failing|fails)\b`), "problem-solving", 0.9},
	{regexp.MustCompile(`(?i)\b(implement|build|create|add|write|develop|feature|prototype)\b`), "development", 0.8},
	{regexp.MustCompile(`(?i)\b(optimize|optimise|optimization|performance|slow|faster|latency|throughput|efficient|profiling)\b`), "optimization", 0.9},
	{regexp.MustCompile(`(?i)\b(review|check|verify|validate|audit|inspect|lint)\b`), "review", 0.7},
	{regexp.MustCompile(`(?i)\b(plan|planning|roadmap|milestone|strategy|approach|scope|estimate)\b`), "planning", 0.7},
}

// Code context probes. Six booleans plus fenced-code language harvesting.
var (
	reCodeBlock  = regexp.MustCompile("(?s)```")
	reInlineCode = regexp.MustCompile("`[^`\n]+`")
	reFilePath   = regexp.MustCompile(`(?:^|[\s("'])(?:\.{0,2}/)?[\w./-]+\.(?:go|js|jsx|ts|tsx|py|rs|java|rb|c|cc|cpp|h|hpp|json|yaml|yml|toml|md|sql|sh|proto)\b`)
	reErrorMsg   = regexp.MustCompile(`(?i)(\b(?:error|exception|panic|fatal|traceback)\b\s*[:!]|\b\w+(?:Error|Exception)\b|stack trace)`)
	reCommand    = regexp.MustCompile(`(?m)(^\s*\$\s+\S+|\b(?:npm|git|docker|cargo|pip|make|kubectl)\s+(?:run|install|build|test|commit|push|pull|apply|up|exec)\b|\bgo\s+(?:run|build|test|vet|mod)\b)`)
	reURL        = regexp.MustCompile(`https?://\S+`)
	reFenceLang  = regexp.MustCompile("```([a-zA-Z][a-zA-Z0-9+#-]*)")
)

// intentKeywords maps each intent to the content keywords that count toward
// the conversation-relevance factor in the scorer.
var intentKeywords = map[string][]string{
	"learning":        {"guide", "tutorial", "explanation", "example", "concept", "documentation"},
	"problem-solving": {"fix", "solution", "debug", "error", "workaround", "root cause"},
	"development":     {"implementation", "feature", "code", "build", "design", "api"},
	"optimization":    {"performance", "optimization", "benchmark", "profiling", "cache", "latency"},
	"review":          {"review", "feedback", "quality", "audit", "style", "convention"},
	"planning":        {"plan", "roadmap", "architecture", "decision", "milestone", "scope"},
}

// IntentKeywords returns the scoring keywords associated with an intent name.
// Unknown intents return nil.
func IntentKeywords(intent string) []string {
	return intentKeywords[intent]
}

// codeIndicators are the content markers that count as the code factor in
// conversation-relevance scoring.
var codeIndicators = []string{"code", "function", "error", "config", "command", "script", "implementation", "snippet"}

// CodeIndicators returns the content markers for the code-context factor.
func CodeIndicators() []string {
	return codeIndicators
}
