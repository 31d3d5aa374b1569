package keywords

import "regexp"

// stopwords are tokens that never count as keyword signal on their own.
var stopwords = map[string]struct{}{}

var stopwordList = []string{
	"a", "an", "and", "the", "to", "for", "of", "in", "on", "at", "by", "with", "or", "as", "is", "are", "be", "from",
	"that", "this", "it", "you", "your", "our", "we", "will", "can", "should", "must", "have", "has", "had", "do", "does",
	"did", "who", "what", "when", "where", "why", "how", "about", "into", "within", "across", "through", "over", "under",
	"required", "preferred", "plus", "experience", "years", "year", "ability", "strong", "excellent", "good", "using",
	"work", "working", "role", "team", "teams", "candidate", "job", "position", "responsibilities", "requirements",
	"including", "knowledge", "understanding", "support", "develop", "development", "design", "build", "building",
	"based", "related", "etc",
}

// commonSkills is the curated skill dictionary. A dictionary hit lifts
// a keyword to the top base weight.
var commonSkills = []string{
	"javascript", "typescript", "node.js", "node", "react", "next.js", "nextjs", "angular", "vue", "html", "css", "sass",
	"tailwind", "python", "java", "c#", "c++", "go", "golang", "rust", "sql", "postgresql", "mysql", "mongodb", "redis",
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "graphql", "rest", "rest api", "microservices", "ci/cd",
	"git", "github", "gitlab", "jira", "figma", "agile", "scrum", "data analysis", "machine learning", "ai", "openai",
	"llm", "nlp", "excel", "power bi", "tableau", "salesforce", "sap", "testing", "jest", "playwright", "cypress",
}

var commonSkillSet = map[string]struct{}{}

// highValueSingles are bare tokens that still deserve a weight bump
// even without a dictionary phrase around them.
var highValuePattern = regexp.MustCompile(`^(aws|gcp|azure|sql|api|react|node|python|java|docker|kubernetes)$`)

// shortTermAllowlist keeps meaningful two-character terms that the
// minimum-length filter would otherwise drop.
var shortTermAllowlist = map[string]struct{}{
	"go": {}, "ai": {}, "ml": {}, "qa": {}, "bi": {}, "ui": {}, "ux": {}, "c#": {}, "ci": {}, "cd": {},
}

// lowSignalTerms are boilerplate phrases that inflate keyword pools
// without telling an ATS anything. They carry zero weight and are
// excluded from the model.
var lowSignalTerms = map[string]struct{}{
	"communication skills": {}, "team player": {}, "fast-paced": {}, "fast paced": {}, "self-starter": {},
	"detail oriented": {}, "detail-oriented": {}, "hard working": {}, "problem solving": {}, "problem-solving": {},
	"bachelor": {}, "bachelors": {}, "degree": {}, "equivalent": {}, "qualifications": {}, "benefits": {},
	"salary": {}, "compensation": {}, "location": {}, "remote": {}, "hybrid": {}, "onsite": {},
	"manage": {}, "managing": {}, "create": {}, "creating": {}, "ensure": {}, "ensuring": {},
	"provide": {}, "providing": {}, "collaborate": {}, "collaboration": {},
}

// equivalenceGroups lists interchangeable alternatives. When two or
// more members of a group show up in one job description, the group
// counts as a single unit of coverage worth its best member's weight.
var equivalenceGroups = map[string][]string{
	"oo-language":  {"java", "go", "golang", "c#", "c++", "python"},
	"js-framework": {"react", "angular", "vue", "next.js", "nextjs"},
	"cloud":        {"aws", "azure", "gcp"},
	"sql-database": {"sql", "postgresql", "mysql"},
}

// CompositeRule collapses fragments of one concept into a single
// keyword. When at least two member phrases are extracted from the
// same job description, they merge into the rule's label.
type CompositeRule struct {
	Label   string
	Members []string
}

var compositeRules = []CompositeRule{
	{Label: "release management", Members: []string{"release platform", "release tools", "release tooling", "high quality release", "quality release", "release process", "release train"}},
	{Label: "mobile platforms", Members: []string{"app store", "play store", "ios", "android"}},
	{Label: "incident response", Members: []string{"on-call", "on call", "incident", "postmortem", "root cause"}},
	{Label: "observability", Members: []string{"monitoring", "alerting", "dashboards", "tracing", "metrics"}},
}

// sectionHeaders are recognized resume section names, lowercase.
var sectionHeaders = []string{
	"summary", "professional summary", "profile", "experience", "work experience", "employment",
	"skills", "technical skills", "projects", "education", "certifications", "achievements",
}

// roleWords mark a line as a likely job title.
var roleWords = []string{"engineer", "developer", "analyst", "manager", "architect", "scientist", "designer", "consultant"}

func init() {
	for _, w := range stopwordList {
		stopwords[w] = struct{}{}
	}
	for _, s := range commonSkills {
		commonSkillSet[s] = struct{}{}
	}
}

// IsStopword reports whether the token carries no keyword signal.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// IsDictionarySkill reports whether the term is in the curated skill
// dictionary.
func IsDictionarySkill(term string) bool {
	_, ok := commonSkillSet[term]
	return ok
}

// IsLowSignal reports whether a term should be excluded from the
// keyword pool entirely.
func IsLowSignal(term string) bool {
	if len(term) < 2 {
		return true
	}
	if len(term) == 2 {
		if _, ok := shortTermAllowlist[term]; !ok {
			return true
		}
	}
	if IsStopword(term) {
		return true
	}
	_, ok := lowSignalTerms[term]
	return ok
}

// SectionHeaders returns the recognized resume section names.
func SectionHeaders() []string {
	return sectionHeaders
}
