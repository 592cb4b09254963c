package backend

import (
	"fmt"
	"strings"

	"github.com/apresai/interviewer/internal/session"
)

const analyzeSystemPrompt = `You are a market research planner. You review a proposed research target
(an industry plus a target-audience description) and decide whether it is specific enough to build a
realistic consumer persona from.

If the input is specific enough, return zero questions. Only ask when an ambiguity would materially
change who the persona is. Never ask more than 3 questions. Each question should offer 2-4 concrete
answer options the researcher can pick from.

OUTPUT FORMAT:
Return ONLY valid JSON matching this exact structure (no markdown fences, no extra text):
{
  "questions": [
    {"question": "...", "options": ["...", "..."]}
  ]
}

If no clarification is needed, return {"questions": []}.
IMPORTANT: Output raw JSON only. No markdown code fences. No text before or after the JSON.`

func buildAnalyzePrompt(industry, audience string) string {
	return fmt.Sprintf("INDUSTRY: %s\n\nTARGET AUDIENCE: %s\n\nDecide whether this is specific enough to research, and return your questions (or none) as JSON.", industry, audience)
}

const personaSystemPrompt = `You are a consumer research specialist. You build a single, vivid, realistic
consumer persona for a given industry and target audience. The persona must feel like a real person:
a name, an age, a life situation, habits, frustrations, and concrete purchase behavior. Ground every
claim in the audience description and reference materials — do not contradict them.

Write the profile as markdown with sections for Demographics, Psychographics, Behaviors, and Needs.
Then score how completely the available information covers each of those four dimensions on a 0-5
scale (5 = rich, specific detail; 0 = pure guesswork).

OUTPUT FORMAT:
Return ONLY valid JSON matching this exact structure (no markdown fences, no extra text):
{
  "name": "display name for the persona",
  "summary": "one sentence capturing who this person is",
  "profile": "full markdown profile text",
  "scores": {"demographics": 0, "psychographics": 0, "behaviors": 0, "needs": 0},
  "sources": [{"uri": "...", "title": "..."}]
}

Include sources only when you drew on verifiable external references. Use the same language as the
audience description (e.g. answer in Chinese if the input is Chinese).
IMPORTANT: Output raw JSON only. No markdown code fences. No text before or after the JSON.`

func buildPersonaPrompt(req PersonaRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INDUSTRY: %s\n\nTARGET AUDIENCE: %s\n\n", req.Industry, req.Audience)

	if len(req.Clarifications) > 0 {
		b.WriteString("CLARIFICATIONS FROM THE RESEARCHER:\n")
		for _, c := range req.Clarifications {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	if len(req.Materials) > 0 {
		b.WriteString("REFERENCE MATERIALS:\n")
		for _, m := range req.Materials {
			fmt.Fprintf(&b, "--- %s ---\n%s\n\n", m.Name, truncate(m.Content, maxMaterialChars))
		}
	}

	b.WriteString("Build one persona for this audience and return it as JSON.")
	return b.String()
}

// maxMaterialChars caps each reference material's contribution to the prompt
// so a large upload cannot crowd out the instructions.
const maxMaterialChars = 12000

const guideSystemPrompt = `You are a qualitative research interviewer preparing a discussion guide for a
one-on-one consumer interview. Write 6-10 open-ended questions, ordered from warm-up through core topics
to wrap-up. Questions must be answerable by the persona described, phrased conversationally, and must
never lead the respondent toward an answer. Any mandatory questions supplied by the researcher must
appear in the guide, reworded only for flow.

OUTPUT FORMAT:
Return ONLY valid JSON matching this exact structure (no markdown fences, no extra text):
{"questions": ["...", "..."]}

Use the same language as the persona profile.
IMPORTANT: Output raw JSON only. No markdown code fences. No text before or after the JSON.`

func buildGuidePrompt(req GuideRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INDUSTRY: %s\n\nPERSONA:\n%s\n\n", req.Industry, req.Persona.Profile)

	if req.Objectives != "" {
		fmt.Fprintf(&b, "RESEARCH OBJECTIVES: %s\n\n", req.Objectives)
	}
	if len(req.MandatoryQuestions) > 0 {
		b.WriteString("MANDATORY QUESTIONS (must appear in the guide):\n")
		for _, q := range req.MandatoryQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n")
	}

	b.WriteString("Write the discussion guide and return it as JSON.")
	return b.String()
}

// buildChatSystemPrompt frames a chat conversation so the model answers as
// the persona for the entire interview.
func buildChatSystemPrompt(persona session.Persona, industry string) string {
	return fmt.Sprintf(`You are role-playing a consumer being interviewed for %s market research.
Stay in character for the whole conversation. Your character:

%s

RULES:
1. Answer as this person would — their vocabulary, their concerns, their budget, their habits
2. Keep answers conversational: 2-5 sentences, not essays
3. Be specific: name real situations, amounts, and trade-offs from your life
4. It is fine to be uncertain, contradictory, or unenthusiastic — real consumers are
5. Never break character, never mention being an AI or a persona
6. Answer in the same language the interviewer uses`, industry, persona.Profile)
}

const introduceMessage = "你好，请先简单介绍一下你自己吧。(Hi — please start by briefly introducing yourself.)"

const moderatorSystemPrompt = `You are an expert qualitative research moderator running a consumer interview.
Given the discussion guide and the transcript so far, decide your next move:

1. DEEP-DIVE: if the respondent's last answer contains a high-value signal — an improvement idea, a
   situational pain point, a forward-looking expectation, or product-development-relevant detail —
   ask one focused follow-up that digs into it.
2. ADVANCE: otherwise, move to the next guide topic that has not been covered yet. Reword guide
   questions naturally; react briefly to what was just said before pivoting.
3. COMPLETE: if every guide topic has been covered and the last answers are yielding nothing new,
   end the interview.

Ask exactly one question at a time. Never repeat a question already asked. Use the same language as
the respondent.

OUTPUT FORMAT:
Return ONLY valid JSON matching one of these structures (no markdown fences, no extra text):
{"action": "ask", "question": "..."}
{"action": "complete"}

IMPORTANT: Output raw JSON only. No markdown code fences. No text before or after the JSON.`

func buildModeratorPrompt(req ModeratorRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "PERSONA BEING INTERVIEWED:\n%s\n\n", req.Persona.Summary)

	b.WriteString("DISCUSSION GUIDE:\n")
	for i, q := range req.Guide {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString("\n")

	b.WriteString("TRANSCRIPT SO FAR:\n")
	b.WriteString(renderTranscript(req.Transcript))
	b.WriteString("\nDecide your next move and return it as JSON.")
	return b.String()
}

const summarySystemPrompt = `You are a senior market researcher writing up a completed consumer interview.
Read the full transcript and produce a structured debrief. Be concrete: quote or closely paraphrase what
the respondent actually said; never invent findings the transcript does not support. If the interview was
too short to support a section, say so in that section rather than padding it.

OUTPUT FORMAT:
Return ONLY valid JSON matching this exact structure (no markdown fences, no extra text):
{
  "insights": "the key insights, as a few short paragraphs or bullet lines",
  "painPoints": "the respondent's pain points",
  "wants": "what the respondent wants or needs",
  "verdict": "overall verdict on the product/market opportunity for this persona"
}

Use the same language as the transcript.
IMPORTANT: Output raw JSON only. No markdown code fences. No text before or after the JSON.`

func buildSummaryPrompt(req SummaryRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INDUSTRY: %s\n\nPERSONA:\n%s\n\n", req.Industry, req.Persona.Summary)
	b.WriteString("FULL TRANSCRIPT:\n")
	b.WriteString(renderTranscript(req.Transcript))
	b.WriteString("\nWrite the debrief and return it as JSON.")
	return b.String()
}

func renderTranscript(transcript []session.Message) string {
	var b strings.Builder
	for _, m := range transcript {
		speaker := "Interviewer"
		if m.Role == session.RoleRespondent {
			speaker = "Respondent"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Text)
	}
	if b.Len() == 0 {
		b.WriteString("(no messages yet)\n")
	}
	return b.String()
}
