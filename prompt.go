package main

import "strings"

const resumeTextPlaceholder = "{resume_text}"

func instruction() string {
	return `You are an intelligent resume parser. You turn raw resume text into the exact JSON structure the user asks for and reply with nothing but that JSON object.`
}

func promptTemplate() string {
	return `
You are an intelligent resume parser designed to extract detailed candidate information in a precise structured JSON format.

From the raw resume text below, extract and organize the following data:

Return the output in *exactly* this JSON format (with accurate nesting and field names):

{
  "Skills": {
    "Languages": [...],
    "Technologies": [...],
    "Core": [...]
  },
  "Certifications": [
    ...
  ],
  "Projects": [
    {
      "title": "...",
      "date": "...",
      "details": [
        "...",
        "..."
      ]
    },
    ...
  ],
  "Work Experience": [
    {
      "role": "...",
      "organization": "...",
      "location": "...", // if not available, use null
      "date": "...",
      "responsibilities": [
        "...",
        "..."
      ]
    },
    ...
  ]
}

Rules:
- Classify "Skills" into three categories: Languages, Technologies, Core (conceptual/academic).
- Each "Project" should include a title, date (if available), and bullet point descriptions.
- "Work Experience" must include role, organization, date range, location (null if not mentioned), and responsibilities as bullet points.
- Only return the JSON object. No explanations, headings, or comments.
- If any field has no data, use an empty list [] or null appropriately.

Now, extract from the resume below:

{resume_text}
`
}

// buildPrompt substitutes the resume text literally; braces in the resume
// are never interpreted.
func buildPrompt(resumeText string) string {
	return strings.Replace(promptTemplate(), resumeTextPlaceholder, resumeText, 1)
}
