package protocol

import "testing"

func TestJoinAndSplitAnswer(t *testing.T) {
	joined := JoinAnswer("here is my solution", "func main() {}\n")
	if !HasCodeBlock(joined) {
		t.Fatalf("expected code block markers in %q", joined)
	}
	explanation, code := SplitAnswer(joined)
	if explanation != "here is my solution" {
		t.Fatalf("unexpected explanation: %q", explanation)
	}
	if code != "func main() {}" {
		t.Fatalf("unexpected code: %q", code)
	}
}

func TestSplitAnswerWithoutMarkers(t *testing.T) {
	explanation, code := SplitAnswer("  plain text answer  ")
	if explanation != "plain text answer" || code != "" {
		t.Fatalf("unexpected split: %q / %q", explanation, code)
	}
}

func TestJoinAnswerCodeOnly(t *testing.T) {
	joined := JoinAnswer("", "print(42)")
	explanation, code := SplitAnswer(joined)
	if explanation != "" || code != "print(42)" {
		t.Fatalf("unexpected split: %q / %q", explanation, code)
	}
}
