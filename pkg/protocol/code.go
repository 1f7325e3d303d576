package protocol

import (
	"regexp"
	"strings"
)

// Literal delimiters bracketing a structured code block inside an answer.
// The downstream evaluator splits on these markers.
const (
	CodeStartMarker = "[CODE]"
	CodeEndMarker   = "[/CODE]"
)

var codeBlockRe = regexp.MustCompile(`(?s)\[CODE\](.*?)\[/CODE\]`)

// JoinAnswer concatenates free text and a code submission into the single
// answer string the evaluator expects.
func JoinAnswer(text, code string) string {
	text = strings.TrimSpace(text)
	code = strings.TrimSpace(code)
	if code == "" {
		return text
	}
	block := CodeStartMarker + "\n" + code + "\n" + CodeEndMarker
	if text == "" {
		return block
	}
	return text + "\n" + block
}

// SplitAnswer separates an answer into its explanation and code block.
// Answers without markers come back with an empty code part.
func SplitAnswer(answer string) (explanation, code string) {
	m := codeBlockRe.FindStringSubmatch(answer)
	if m == nil {
		return strings.TrimSpace(answer), ""
	}
	code = strings.TrimSpace(m[1])
	explanation = strings.TrimSpace(codeBlockRe.ReplaceAllString(answer, ""))
	return explanation, code
}

// HasCodeBlock reports whether the answer embeds a structured code block.
func HasCodeBlock(answer string) bool {
	return strings.Contains(answer, CodeStartMarker) && strings.Contains(answer, CodeEndMarker)
}
