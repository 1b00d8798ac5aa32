package privilege

import "testing"

func TestParseExpression(t *testing.T) {
	expr, err := ParseExpression("GET transaction")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if expr.String() != "GET transaction" {
		t.Fatalf("expected GET transaction, got %s", expr.String())
	}

	expr, err = ParseExpression("put user role")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if expr.String() != "PUT user role" {
		t.Fatalf("expected canonical method, got %s", expr.String())
	}

	if _, err := ParseExpression("* *"); err != nil {
		t.Fatalf("wildcard method/category should parse: %v", err)
	}
}

func TestParseExpressionRejectsBadInput(t *testing.T) {
	for _, text := range []string{"", "GET", "GET a b c", "FETCH transaction"} {
		if _, err := ParseExpression(text); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestExpressionItemMatching(t *testing.T) {
	noItem, _ := ParseExpression("GET client")
	wildItem, _ := ParseExpression("GET client *")
	exactItem, _ := ParseExpression("GET client table")

	// Absent item matches only requests without an item.
	if !noItem.Matches(MethodGet, "client", "") {
		t.Error("no-item expression should match itemless request")
	}
	if noItem.Matches(MethodGet, "client", "table") {
		t.Error("no-item expression must not match a request with an item")
	}

	// Wildcard item matches anything, including absence.
	if !wildItem.Matches(MethodGet, "client", "") {
		t.Error("wildcard item should match itemless request")
	}
	if !wildItem.Matches(MethodGet, "client", "table") {
		t.Error("wildcard item should match any item")
	}

	if !exactItem.Matches(MethodGet, "client", "table") {
		t.Error("exact item should match")
	}
	if exactItem.Matches(MethodGet, "client", "") {
		t.Error("exact item must not match itemless request")
	}
}

func TestExpressionMatchIsCaseInsensitive(t *testing.T) {
	expr, _ := ParseExpression("GET Client Table")
	if !expr.Matches(MethodGet, "client", "table") {
		t.Error("matching should ignore case")
	}
	if !expr.Matches(MethodGet, "CLIENT", "TABLE") {
		t.Error("matching should ignore case")
	}
}

func TestNormalizeExpressions(t *testing.T) {
	got := NormalizeExpressions([]string{
		"  GET   transaction  ",
		"PUT",
		"",
		"GET client table extra junk",
	})
	want := []string{"GET transaction", "GET client table"}
	if len(got) != len(want) {
		t.Fatalf("expected %d patterns, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitOperationKey(t *testing.T) {
	m, category, item, err := splitOperationKey("DELETE integration id")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if m != MethodDelete || category != "integration" || item != "id" {
		t.Fatalf("got %s %s %s", m, category, item)
	}

	if _, _, _, err := splitOperationKey("* integration"); err == nil {
		t.Error("wildcard method must be rejected in operation keys")
	}
	if _, _, _, err := splitOperationKey("GET"); err == nil {
		t.Error("missing category must be rejected")
	}
}
