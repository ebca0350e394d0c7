package textutil

import "testing"

func TestPlainTextStripsMarkup(t *testing.T) {
	got := PlainText("  <b>Leave at</b> <script>alert(1)</script>door  ", 0)
	if got != "Leave at door" {
		t.Fatalf("unexpected sanitised text %q", got)
	}
}

func TestPlainTextKeepsEntitiesReadable(t *testing.T) {
	got := PlainText("Tom & Jerry's", 0)
	if got != "Tom & Jerry's" {
		t.Fatalf("expected entities decoded, got %q", got)
	}
}

func TestPlainTextTruncatesByRune(t *testing.T) {
	got := PlainText("قهوة عربية", 4)
	if got != "قهوة" {
		t.Fatalf("expected rune truncation, got %q", got)
	}
}

func TestSingleLineCollapsesWhitespace(t *testing.T) {
	got := SingleLine("ring\n\n  twice\tplease", 0)
	if got != "ring twice please" {
		t.Fatalf("unexpected single line %q", got)
	}
}
