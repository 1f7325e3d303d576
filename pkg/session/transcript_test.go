package session

import (
	"reflect"
	"testing"
)

func TestTranscriptOrderPreserving(t *testing.T) {
	tr := NewTranscript(8)
	tr.Finalize("first segment")
	tr.Finalize("second segment")
	tr.Interim("pending tail")

	got := tr.Assemble()
	want := "first segment second segment pending tail"
	if got != want {
		t.Errorf("Assemble() = %q, want %q", got, want)
	}
}

func TestTranscriptSpeechStartFinalizesInterim(t *testing.T) {
	tr := NewTranscript(8)
	tr.Interim("hello")
	tr.SpeechStart()
	tr.Finalize("hello world")

	want := []string{"hello", "hello world"}
	if got := tr.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
	if got := tr.Assemble(); got != "hello hello world" {
		t.Errorf("Assemble() = %q, want %q", got, "hello hello world")
	}
}

func TestTranscriptSpeechStartEmptyInterimIsNoop(t *testing.T) {
	tr := NewTranscript(8)
	tr.SpeechStart()
	if got := tr.Segments(); len(got) != 0 {
		t.Errorf("Segments() = %v, want empty", got)
	}
}

func TestTranscriptInterimOverwrites(t *testing.T) {
	tr := NewTranscript(8)
	tr.Interim("partial one")
	tr.Interim("partial one and more")
	if got := tr.Assemble(); got != "partial one and more" {
		t.Errorf("Assemble() = %q, want only the latest interim", got)
	}
}

func TestTranscriptFinalizeClearsInterim(t *testing.T) {
	tr := NewTranscript(8)
	tr.Interim("hello wor")
	tr.Finalize("hello world")
	if got := tr.Assemble(); got != "hello world" {
		t.Errorf("Assemble() = %q, want %q", got, "hello world")
	}
}

func TestTranscriptNoisePhraseDoesNotCountAsActivity(t *testing.T) {
	tr := NewTranscript(8)
	if tr.Interim("uh") {
		t.Error("short interim phrase should not count as activity")
	}
	if !tr.Interim("a longer real phrase") {
		t.Error("long interim phrase should count as activity")
	}
	if tr.Finalize("hm") {
		t.Error("short finalized phrase should not count as activity")
	}
	// Noise is still kept: append-only segments never drop content.
	if got := tr.Segments(); len(got) != 1 || got[0] != "hm" {
		t.Errorf("Segments() = %v, want [hm]", got)
	}
}

func TestTranscriptReset(t *testing.T) {
	tr := NewTranscript(8)
	tr.Finalize("something said")
	tr.Interim("more")
	tr.Reset()
	if got := tr.Assemble(); got != "" {
		t.Errorf("Assemble() after Reset = %q, want empty", got)
	}
}
