package prompt

import (
	"strings"
	"testing"
)

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	set := LoadPromptSet()
	if err := set.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.Contains(set.Greeting, "<ROUTING:SALES>") {
		t.Fatal("greeting prompt must describe the routing tag")
	}
	if !strings.Contains(set.Sales, "<JSON>") {
		t.Fatal("sales prompt must describe the extraction block")
	}
	if !strings.Contains(set.Sales, "Never ask for the customer's mobile number") {
		t.Fatal("sales prompt must not ask for identification")
	}
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	got := WithContext("base", "Name: Asha", "Limit: 500000")
	want := "base\n\nContext:\n- Name: Asha\n- Limit: 500000"
	if got != want {
		t.Fatalf("WithContext() = %q, want %q", got, want)
	}
	if WithContext("base") != "base" {
		t.Fatal("no lines must return the base prompt")
	}
}
