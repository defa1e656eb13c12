package prompts

const classifySpec = `Respond with a JSON object matching this exact structure:

{
  "domains": ["<domain>"],
  "sub_topics": ["<topic>"],
  "entities": {"<name>": "<value>"},
  "urgency": "<critical|high|medium|low>",
  "complexity": "<simple|moderate|complex>",
  "routing": {
    "primary_agent": "<domain>",
    "secondary_agents": ["<domain>"],
    "needs_scraping": false
  },
  "summary": "<one sentence>"
}

Field constraints:
- domains: at least one lowercase domain; the first is the primary domain
- routing.primary_agent: equals domains[0]
- routing.secondary_agents: the remaining domains, possibly empty
- needs_scraping: true when the question depends on rules you expect to have changed recently

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Do not answer the question`

const agentSpec = `Response structure (markdown):
1. One-paragraph summary of the user's position under UAE law
2. Applicable law, with law names and article numbers
3. Numbered action steps, each naming the authority or channel
4. Deadlines, fees, and documents to prepare
5. When to escalate to a lawyer or legal aid`

const judgeSpec = `Respond with a JSON object matching this exact structure:

{
  "scores": {
    "legal_accuracy": 0,
    "completeness": 0,
    "actionability": 0,
    "citation_quality": 0
  },
  "feedback": {
    "strengths": ["<strength>"],
    "weaknesses": ["<weakness>"],
    "missing_topics": ["<topic>"],
    "retry_instructions": "<instructions>"
  },
  "improvement_signal": {
    "learned": "<lesson or empty string>",
    "update_prompt": false
  }
}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Scores are integers from 1 to 10
- retry_instructions is empty when the response passes`

const extractSpec = `Respond with a JSON object matching this exact structure:

{
  "domain": "<domain>",
  "skills_found": 0,
  "skills": [
    {
      "skill_id": "<domain>_<topic>_<nnn>",
      "domain": "<domain>",
      "topic": "<snake_case_topic>",
      "title": "<title>",
      "content": "<two to four factual sentences>",
      "law_references": [{"law": "<law name>", "articles": ["<n>"]}],
      "procedures": ["<step>"],
      "authorities": ["<authority>"],
      "confidence": "<high|medium|low>"
    }
  ],
  "sources_accessed": ["<host>"]
}

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- skills_found equals the number of skills`

const formatSpec = `Output markdown only, no JSON and no code fences.
Keep the response under 600 words unless the action plan requires more.`

var specs = map[Stage]string{
	StageClassify: classifySpec,
	StageAgent:    agentSpec,
	StageJudge:    judgeSpec,
	StageExtract:  extractSpec,
	StageFormat:   formatSpec,
}

// Spec returns the output specification for stage. Specs cannot be overridden.
func Spec(stage Stage) (string, error) {
	text, ok := specs[stage]
	if !ok {
		return "", ErrInvalidStage
	}
	return text, nil
}
