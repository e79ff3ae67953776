package dataset

import (
	"errors"
	"testing"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name      string
		link      string
		wantSlug  string
		wantError bool
	}{
		{
			name:     "full kaggle link",
			link:     "https://www.kaggle.com/datasets/blastchar/telco-customer-churn",
			wantSlug: "blastchar/telco-customer-churn",
		},
		{
			name:     "trailing slash and whitespace",
			link:     "  https://www.kaggle.com/datasets/blastchar/telco-customer-churn/  ",
			wantSlug: "blastchar/telco-customer-churn",
		},
		{
			name:     "query string ignored",
			link:     "https://www.kaggle.com/datasets/uciml/iris?select=Iris.csv",
			wantSlug: "uciml/iris",
		},
		{
			name:     "last two segments win",
			link:     "https://www.kaggle.com/datasets/extra/owner/name",
			wantSlug: "owner/name",
		},
		{
			name:     "bare slug",
			link:     "uciml/iris",
			wantSlug: "uciml/iris",
		},
		{
			name:      "empty",
			link:      "",
			wantError: true,
		},
		{
			name:      "no datasets segment",
			link:      "https://www.kaggle.com/competitions/titanic",
			wantError: true,
		},
		{
			name:      "datasets without owner and name",
			link:      "https://www.kaggle.com/datasets/blastchar",
			wantError: true,
		},
		{
			name:      "single word",
			link:      "telco",
			wantError: true,
		},
		{
			name:      "dot segments rejected",
			link:      "https://www.kaggle.com/datasets/../..",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.link)
			if tt.wantError {
				if !errors.Is(err, ErrInvalidReference) {
					t.Fatalf("ParseReference(%q) error = %v, want ErrInvalidReference", tt.link, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReference(%q) unexpected error: %v", tt.link, err)
			}
			if got := ref.Slug(); got != tt.wantSlug {
				t.Errorf("Slug() = %q, want %q", got, tt.wantSlug)
			}
			if ref.Source != SourceKaggle {
				t.Errorf("Source = %q, want %q", ref.Source, SourceKaggle)
			}
		})
	}
}

func TestReferenceString(t *testing.T) {
	ref := Reference{Source: SourceUpload, Name: "sales.csv"}
	if got := ref.String(); got != "upload:sales.csv" {
		t.Errorf("String() = %q, want %q", got, "upload:sales.csv")
	}
}
