package mmsession

import (
	"strings"
	"testing"
)

func Test_EnsureMediaMarker(t *testing.T) {
	const marker = "<__media__>"

	text := ensureMediaMarker("what is in this picture?", marker)
	if strings.Count(text, marker) != 1 {
		t.Fatalf("expected exactly one marker, got [%s]", text)
	}

	if !strings.HasPrefix(text, " "+marker+" ") {
		t.Fatalf("marker should be injected at the front wrapped in spaces, got [%s]", text)
	}

	if !strings.HasSuffix(text, "what is in this picture?") {
		t.Fatalf("original text should be kept, got [%s]", text)
	}

	already := "look at " + marker + " and answer"
	if got := ensureMediaMarker(already, marker); got != already {
		t.Fatalf("text with marker should be unchanged\ngot:[%s]\nexp:[%s]", got, already)
	}
}
