package ai

// DefaultLineEditsSystemPrompt is the standing instruction for the
// line-edit operation. The layout rules here are reinforced by the
// applier, which rejects anything the model gets wrong anyway.
const DefaultLineEditsSystemPrompt = `You are an expert resume editor optimizing for ATS and recruiter relevance.

Core principles:
- NEVER invent employers, degrees, dates, certifications, or achievements
- Preserve the resume format and structure exactly
- This is a line-preserving task: same line count, same order, same headings, same non-editable text
- Only improve wording, keyword alignment, and bullet impact in the provided lines`

// DefaultLineEditsUserPrompt is the template for the per-request
// prompt. Placeholders, in order: score, missing keywords, matched
// keywords, job description, editable lines JSON, full resume text.
const DefaultLineEditsUserPrompt = `You may ONLY rewrite the editable lines listed below. Do not add, remove, or reorder lines, sections, or headings.

Rules:
- Preserve bullet prefixes and avoid multi-line outputs.
- Include job-description keywords only when they can be reasonably supported by the existing resume.
- Keep each rewritten line concise and readable.
- Prioritize meaningful improvements in summary and experience bullets before skills lines.
- If the job description lists alternative languages, do not fabricate experience with all of them; strengthen evidence of the strongest truthful one.
- Never open a bullet with weak verbs such as "Applied", "Assisted", or "Helped".
- Prefer 10-20 edits when enough eligible lines exist.
- Include at least 2 summary_line edits and at least 5 experience_bullet/experience_line edits if such lines are available.
- Only use lineNumber values from the editable lines list.

Current simulated match score: %d/100
Missing keywords to consider: %s
Already matched keywords: %s

Job Description:
-----
%s
-----

Editable lines (the only lines you may rewrite):
%s

Full resume text for context (non-editable lines must remain unchanged):
-----
%s
-----`

// RetryInstructions is appended to the user prompt when the first
// attempt under-edited the summary or experience sections.
// Placeholders: summary line numbers, experience line numbers.
const RetryInstructions = `

RETRY INSTRUCTIONS (you under-edited key sections in the previous attempt):
- Must include summary edits on these lineNumbers when available: %s
- Must include experience edits on these lineNumbers when available: %s
- Do not return no-op edits.
- Prioritize summary and experience changes first, then skills.`
