// Package receipt turns receipt images into transaction prefills using
// Gemini. The scan result populates a draft; nothing is persisted until
// the user confirms it through the regular transaction flow.
package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"fintrack/internal/core"
)

// ScanResult is the prefill extracted from a receipt image.
type ScanResult struct {
	Amount      core.Money
	Date        time.Time
	Description string
	Category    string
}

// Scanner extracts a transaction prefill from a receipt image.
type Scanner interface {
	Scan(ctx context.Context, imageData []byte, mimeType string) (ScanResult, error)
}

// GeminiScanner implements Scanner against the Gemini API.
type GeminiScanner struct {
	model string
}

func NewGeminiScanner(model string) *GeminiScanner {
	return &GeminiScanner{model: model}
}

type scanPayload struct {
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
}

// Scan sends the receipt image to Gemini and parses the strict-JSON
// reply into a ScanResult. The model is told to pick a category from
// the expense taxonomy; an unknown pick falls back to other-expense.
func (s *GeminiScanner) Scan(ctx context.Context, imageData []byte, mimeType string) (ScanResult, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return ScanResult{}, fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: scanPrompt()},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     imageData,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return ScanResult{}, fmt.Errorf("generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return ScanResult{}, fmt.Errorf("empty response from model")
	}

	return parseScanResponse(rawText)
}

func scanPrompt() string {
	var categories []string
	for _, c := range core.CategoriesFor(core.Expense) {
		categories = append(categories, c.Key)
	}

	return "You are a receipt parser for a personal finance tracker.\n\n" +
		"Task:\n" +
		"- Read the attached receipt image.\n" +
		"- Output STRICT JSON only (no comments, no extra text).\n" +
		"- Output a single JSON object.\n\n" +
		"The object must have these fields:\n" +
		"- \"amount\": number, the receipt total as a positive decimal\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
		"- \"description\": string, the merchant name or a short summary\n" +
		"- \"category\": string, one of: " + strings.Join(categories, ", ") + "\n\n" +
		"Rules:\n" +
		"- If the date cannot be determined, use today's date.\n" +
		"- Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Do NOT use ```json or any Markdown.\n" +
		"Output must begin with \"{\" and end with \"}\".\n"
}

func parseScanResponse(rawText string) (ScanResult, error) {
	clean := cleanModelJSON(rawText)

	var payload scanPayload
	decoder := json.NewDecoder(strings.NewReader(clean))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return ScanResult{}, fmt.Errorf("unmarshal scan response: %w\nraw response: %s", err, rawText)
	}

	cents, err := core.ParseDecimalToCents(payload.Amount.String())
	if err != nil {
		return ScanResult{}, fmt.Errorf("parse amount %q: %w", payload.Amount, err)
	}

	result := ScanResult{
		Amount:      core.Money{Cents: cents},
		Description: payload.Description,
		Category:    payload.Category,
	}

	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return ScanResult{}, fmt.Errorf("parse date %q: %w", payload.Date, err)
		}
		result.Date = date
	}

	if !core.ValidCategory(core.Expense, result.Category) {
		result.Category = "other-expense"
	}

	return result, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If the model still wrapped the object in prose, keep only the
	// outermost braces.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
