package classify

const feedbackPrompt = `You are analyzing customer feedback for an AI company.

Analyze this feedback and return ONLY valid JSON (no markdown, no code blocks):

{
  "category": "feature_request" | "bug" | "use_case_gap" | "pricing" | "competitive" | "praise" | "churn_signal",
  "features_mentioned": ["list of specific features or capabilities mentioned"],
  "competitors_mentioned": ["list of competitor names mentioned"],
  "use_case": "brief description of the use case if mentioned, or empty string",
  "sentiment": "positive" | "neutral" | "negative" | "frustrated",
  "urgency": "low" | "medium" | "high" | "critical",
  "summary": "one sentence summary of the core feedback"
}
%s
Feedback to analyze:
"""
%s
"""`

const signalPrompt = `Analyze this public web signal about %s and return ONLY valid JSON:

{
  "theme": "main topic being discussed",
  "sentiment": "positive" | "neutral" | "negative" | "mixed",
  "competitors_mentioned": ["list of competitors mentioned"],
  "key_points": ["main points or concerns raised"],
  "relevance": "high" | "medium" | "low"
}
%s
Source: %s
Content:
"""
%s
"""`

const briefPrompt = `You are a Customer Success leader preparing a brief for the Product team.

Given this collection of customer feedback, generate a Product Intelligence Brief.

Structure your response as JSON:
{
  "executive_summary": "3 sentences max summarizing the key insights",
  "themes": [
    {
      "theme": "theme name",
      "frequency": number_of_mentions,
      "arr_impact": estimated_arr_at_stake,
      "evidence": ["quote 1", "quote 2"],
      "recommended_action": "specific action to take"
    }
  ],
  "web_correlation": "how public sentiment aligns or conflicts with internal feedback",
  "priority_recommendation": "what to prioritize and why"
}
%s
Feedback data:
"""
%s
"""

Web signals:
"""
%s
"""

Write in direct, actionable language. No fluff. Product team has 2 minutes to read this.`

const schemaBlock = `
The response must validate against this JSON Schema:
%s
`
