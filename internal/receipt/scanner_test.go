package receipt

import (
	"testing"
	"time"
)

func TestParseScanResponse(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		wantCents       int64
		wantDate        time.Time
		wantDescription string
		wantCategory    string
		wantErr         bool
	}{
		{
			name:            "clean JSON",
			raw:             `{"amount": 42.50, "date": "2026-08-20", "description": "Tesco", "category": "groceries"}`,
			wantCents:       4250,
			wantDate:        time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			wantDescription: "Tesco",
			wantCategory:    "groceries",
		},
		{
			name: "markdown fenced",
			raw: "```json\n" +
				`{"amount": 12.99, "date": "2026-08-01", "description": "Cinema", "category": "entertainment"}` +
				"\n```",
			wantCents:       1299,
			wantDate:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			wantDescription: "Cinema",
			wantCategory:    "entertainment",
		},
		{
			name:            "prose around object",
			raw:             `Here is the result: {"amount": 5, "date": "2026-08-10", "description": "Coffee", "category": "food"} hope that helps`,
			wantCents:       500,
			wantDate:        time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			wantDescription: "Coffee",
			wantCategory:    "food",
		},
		{
			name:            "unknown category falls back",
			raw:             `{"amount": 10, "date": "2026-08-10", "description": "Stuff", "category": "crypto"}`,
			wantCents:       1000,
			wantDate:        time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
			wantDescription: "Stuff",
			wantCategory:    "other-expense",
		},
		{
			name:    "not JSON",
			raw:     "sorry, I could not read the receipt",
			wantErr: true,
		},
		{
			name:    "bad date",
			raw:     `{"amount": 10, "date": "20/08/2026", "description": "Stuff", "category": "food"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScanResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseScanResponse() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScanResponse() error = %v", err)
			}
			if got.Amount.Cents != tt.wantCents {
				t.Errorf("amount = %d cents, want %d", got.Amount.Cents, tt.wantCents)
			}
			if !got.Date.Equal(tt.wantDate) {
				t.Errorf("date = %v, want %v", got.Date, tt.wantDate)
			}
			if got.Description != tt.wantDescription {
				t.Errorf("description = %q, want %q", got.Description, tt.wantDescription)
			}
			if got.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", got.Category, tt.wantCategory)
			}
		})
	}
}
