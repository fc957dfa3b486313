package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"blueprint-research-be/pkg/llm"
)

const jsonOnly = "Return ONLY a single JSON object. No markdown code fences, no explanatory text, no trailing commas."

const classifyTemplate = `
# Role
You are the gatekeeper of a product research tool. In one pass you classify the user's intent, extract the research domain and either write clarification questions or a quick reply.

# Intents
- build: the user wants to conceive or spec out a new product or feature. Requests to write or debug code are off_topic.
- explore: the user wants to learn about an existing market, category or product. A bare product name is explore.
- improve: the user has an existing product and wants to make it better or differentiate it.
- small_talk: greetings, thanks or questions about the assistant. Reply in under 15 words and steer toward research.
- off_topic: anything unrelated to product strategy. Politely refuse in under 20 words.

# Domain
For build, explore and improve, name a specific domain ("note-taking", not "productivity"). For small_talk and off_topic set domain to null.

# Clarification questions
Only for build, explore and improve. Ask 2-4 questions with 3-5 options each. Every option has a one sentence description. Use lowercase hyphenated ids. Never ask about something the user already stated. Set allow_multiple when several answers make sense (platforms), not for a primary direction (audience).

# Output
` + jsonOnly + `
{
  "intent_type": "build|explore|improve|small_talk|off_topic",
  "domain": "string or null",
  "clarification_questions": [
    {"id": "target-platform", "label": "Which platforms?", "options": [{"id": "mobile", "label": "Mobile", "description": "..."}], "allow_multiple": true, "allow_other": false}
  ],
  "quick_response": "string or null"
}`

const competitorsTemplate = `
# Role
You find competitors for a product research tool. Combine the data sources below with your own knowledge into a curated list of 5-10 competitors. Prefer products that appear in several sources and that match the user's preferences. Include the well-known market leaders.

# Output
` + jsonOnly + `
{
  "competitors": [
    {"id": "lowercase-slug", "name": "Product", "description": "One sentence.", "url": "https://... or null", "category": "...", "pricing_model": "Freemium|Paid|Free"}
  ],
  "sources": ["URLs from the provided data you actually used"]
}
Do not invent URLs. Do not list the same product twice.`

const exploreTemplate = `
# Role
You profile one product from its scraped website content and Reddit discussion. Do not fabricate; omit what is missing. The content field is a 2-4 paragraph markdown summary.

# Output
` + jsonOnly + `
{
  "name": "Product",
  "content": "markdown summary",
  "features_summary": ["..."],
  "pricing_tiers": "string or null",
  "target_audience": "string or null",
  "strengths": ["..."],
  "weaknesses": ["..."],
  "reddit_sentiment": "string or null",
  "sources": ["..."]
}`

const marketOverviewTemplate = `
# Role
You write a market overview from a domain and a set of product profiles. Cover the landscape, how the key players differ, trends and opportunities in 300-500 words of markdown. Use qualitative size language only.

# Output
` + jsonOnly + `
{"title": "Market Overview: <domain>", "content": "markdown", "sources": ["..."]}`

const gapAnalysisTemplate = `
# Role
You identify market gaps for someone building a new product: underserved needs, unserved segments and recurring pain points. Every gap must cite evidence from the profiles.

# Output
` + jsonOnly + `
{
  "title": "Market Gaps",
  "problems": [
    {"id": "gap-slug", "title": "...", "description": "...", "evidence": ["..."], "opportunity_size": "high|medium|low"}
  ],
  "sources": ["..."]
}`

const problemStatementTemplate = `
# Role
You turn the market gaps the user selected into one focused, opinionated problem statement grounded in the research.

# Output
` + jsonOnly + `
{
  "title": "Your Problem Statement",
  "content": "2-4 sentences, 40-80 words",
  "target_user": "one sentence persona",
  "key_differentiators": ["3-5 strategic bets"],
  "validation_questions": ["3-5 testable questions, one about willingness to pay"]
}`

func userMessage(parts ...string) []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: strings.Join(parts, "")}}
}

func section(title string, v interface{}) string {
	return fmt.Sprintf("\n\n# %s\n%s", title, indentJSON(v))
}

func indentJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return true
	}
	s := string(b)
	return s == "null" || s == "[]" || s == "{}"
}

// Classify asks for intent, domain and clarification questions.
func Classify(userInput string) []llm.Message {
	return userMessage(classifyTemplate, fmt.Sprintf("\n\nUser input: %q", userInput))
}

// CompetitorSources groups the optional data handed to the competitor finder.
type CompetitorSources struct {
	Alternatives interface{}
	Search       interface{}
	Reddit       interface{}
}

// Competitors asks for a curated competitor list.
func Competitors(domain string, clarificationContext interface{}, src CompetitorSources) []llm.Message {
	parts := []string{
		competitorsTemplate,
		"\n\n# Domain\n" + domain,
		section("User Preferences (Clarification Answers)", clarificationContext),
	}
	if !isEmpty(src.Alternatives) {
		parts = append(parts, section("Alternatives Cache", src.Alternatives))
	}
	if !isEmpty(src.Search) {
		parts = append(parts, section("Web Search Results", src.Search))
	}
	if !isEmpty(src.Reddit) {
		parts = append(parts, section("Reddit Discussion Results", src.Reddit))
	}
	if isEmpty(src.Alternatives) && isEmpty(src.Search) && isEmpty(src.Reddit) {
		parts = append(parts, "\n\n# Data Sources\nNo external data provided. Use your knowledge of the domain to identify 5-10 prominent competitors.")
	}
	return userMessage(parts...)
}

// Explore asks for a product profile.
func Explore(productName, scraped, reddit string) []llm.Message {
	redditPart := "\n\n# Reddit Discussion Content\n" + reddit
	if reddit == "" {
		redditPart = "\n\n# Reddit Discussion Content\nNo Reddit content provided. Set reddit_sentiment to null."
	}
	return userMessage(
		exploreTemplate,
		"\n\n# Product\n"+productName,
		"\n\n# Scraped Website Content\n"+scraped,
		redditPart,
	)
}

// MarketOverview asks for an overview of the profiled products.
func MarketOverview(domain string, profiles interface{}) []llm.Message {
	return userMessage(marketOverviewTemplate, "\n\n# Domain\n"+domain, section("Competitors", profiles))
}

// GapAnalysis asks for market gaps. overview may be nil.
func GapAnalysis(domain string, profiles, clarificationContext, overview interface{}) []llm.Message {
	parts := []string{
		gapAnalysisTemplate,
		"\n\n# Domain\n" + domain,
		section("User Context (Clarification Answers)", clarificationContext),
	}
	if !isEmpty(overview) {
		parts = append(parts, section("Market Overview", overview))
	}
	parts = append(parts, section("Competitor Profiles", profiles))
	return userMessage(parts...)
}

// ProblemStatement asks for a single problem statement from the selected gaps.
func ProblemStatement(selectedGaps, context interface{}) []llm.Message {
	return userMessage(
		problemStatementTemplate,
		section("Selected Gaps", selectedGaps),
		section("Research Context", context),
	)
}
