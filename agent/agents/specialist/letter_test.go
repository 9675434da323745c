package specialist

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLetterReference(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if got := LetterReference("abcdef1234567", issued); got != "HC/ABCDEF12/20260314" {
		t.Fatalf("LetterReference() = %q", got)
	}
	if got := LetterReference("ab", issued); got != "HC/AB/20260314" {
		t.Fatalf("LetterReference() = %q", got)
	}
}

func TestFileExporterWritesUniqueLetters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	exp, err := NewFileExporter(dir, "/download")
	if err != nil {
		t.Fatalf("NewFileExporter() error = %v", err)
	}

	letter := Letter{
		Reference:     "HC/ABCDEF12/20260314",
		Name:          "Rahul Sharma",
		Amount:        400000,
		TenureMonths:  24,
		InterestRate:  12,
		EMI:           18829.39,
		ProcessingFee: 4000,
		IssuedAt:      time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	}

	first, err := exp.Export(context.Background(), letter)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	second, err := exp.Export(context.Background(), letter)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if first == second {
		t.Fatal("locators must be unique")
	}
	if !strings.HasPrefix(first, "/download/Sanction_Letter_") {
		t.Fatalf("locator = %q", first)
	}

	body, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(first, "/download/")))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"HC/ABCDEF12/20260314", "Dear Rahul Sharma", "₹400,000.00", "24 Months", "12.00% per annum", "₹4,000.00 (1%)"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("letter missing %q:\n%s", want, body)
		}
	}
}

func TestNewFileExporterRequiresDir(t *testing.T) {
	t.Parallel()

	if _, err := NewFileExporter(" ", ""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
