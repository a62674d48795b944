package extract

import (
	"fmt"
	"strings"
	"time"

	"spendlog/internal/categories"
)

const jsonShape = `Output STRICT JSON only (no comments, no extra text), a single object:
{
  "amount": number or null,
  "currency": string (3-letter ISO code),
  "category": string (one of the listed categories),
  "description": string (short, what the money was spent on),
  "date": string, ISO format "YYYY-MM-DD"
}
Return ONLY valid raw JSON. Do NOT wrap the response in code fences.
Do NOT use ` + "```json" + ` or any Markdown.
Output must begin with "{" and end with "}".`

func categoriesPrompt(cats categories.Snapshot) string {
	return "Allowed categories: " + strings.Join(cats.All, ", ") + ".\n" +
		"Pick the closest match; use \"" + categories.FallbackCategory + "\" when nothing fits."
}

func textPrompt(transcript, baseCurrency string, cats categories.Snapshot, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are an expense extraction assistant for a personal finance tracker.\n\n")
	b.WriteString("Task: extract exactly one expense from the message below.\n")
	b.WriteString(jsonShape)
	b.WriteString("\n\n")
	b.WriteString(categoriesPrompt(cats))
	b.WriteString("\n\nRules:\n")
	fmt.Fprintf(&b, "- Today is %s. Resolve relative dates (\"yesterday\", \"last Friday\") against it.\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "- If the currency is not stated, assume %s.\n", baseCurrency)
	b.WriteString("- If no reasonable amount can be determined, set \"amount\" to null. Never invent one.\n")
	b.WriteString("- Keep the description to a few words.\n\n")
	b.WriteString("Message:\n")
	b.WriteString(transcript)
	return b.String()
}

func imagePrompt(baseCurrency string, cats categories.Snapshot, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are an expense extraction assistant for a personal finance tracker.\n\n")
	b.WriteString("Task: read the attached receipt or bill and extract the overall total as one expense.\n")
	b.WriteString(jsonShape)
	b.WriteString("\n\n")
	b.WriteString(categoriesPrompt(cats))
	b.WriteString("\n\nRules:\n")
	b.WriteString("- Always give your best guess for the total. Prefer the grand total over line items.\n")
	b.WriteString("- Use the date printed on the document when legible.\n")
	fmt.Fprintf(&b, "- Today is %s. Use it when the document shows no date.\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "- If the currency is not visible, assume %s.\n", baseCurrency)
	b.WriteString("- Use the merchant name as the description when nothing better is visible.\n")
	return b.String()
}
