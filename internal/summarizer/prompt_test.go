package summarizer

import (
	"strings"
	"testing"
)

func TestBuildPromptWithoutTopic(t *testing.T) {
	prompt := BuildPrompt(sampleHeadlines(), "")

	if !strings.HasPrefix(prompt, "You are a helpful assistant.") {
		t.Errorf("Expected fixed preamble, got %q", prompt)
	}
	want := "Central bank holds rates - https://news.example.com/rates\nStorm makes landfall - https://news.example.com/storm"
	if !strings.Contains(prompt, want) {
		t.Errorf("Expected newline-joined headlines in order, got %q", prompt)
	}
	if !strings.Contains(prompt, "concise") || !strings.Contains(prompt, "engaging") {
		t.Error("Expected tone instructions in prompt")
	}
}

func TestBuildPromptNamesTopic(t *testing.T) {
	prompt := BuildPrompt(sampleHeadlines(), "Technology")
	if !strings.Contains(prompt, "Technology news headlines") {
		t.Errorf("Expected topic to be named, got %q", prompt)
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	a := BuildPrompt(sampleHeadlines(), "Health")
	b := BuildPrompt(sampleHeadlines(), "Health")
	if a != b {
		t.Error("Expected identical prompts for identical input")
	}
}
