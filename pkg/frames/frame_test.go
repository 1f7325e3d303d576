package frames

import (
	"bytes"
	"testing"
)

func TestPooledAudioFrameRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	f := NewAudioFrameFromPool("sess-1", 10, payload, 16000, 1, nil)

	if !bytes.Equal(f.RawPayload(), payload) {
		t.Fatalf("payload = %v, want %v", f.RawPayload(), payload)
	}
	// The pooled copy is independent of the caller's buffer.
	payload[0] = 99
	if f.RawPayload()[0] == 99 {
		t.Error("pooled frame must copy the payload")
	}

	if !ReleaseAudioFrame(f) {
		t.Error("pooled frame must return its buffer to the pool")
	}
}

func TestReleaseIgnoresUnpooledFrames(t *testing.T) {
	f := NewAudioFrame("sess-1", 10, []byte{1, 2}, 16000, 1, nil)
	if ReleaseAudioFrame(f) {
		t.Error("frames built without the pool must not be released to it")
	}
	if ReleaseAudioFrame(NewTextFrame("sess-1", 10, "hi", nil)) {
		t.Error("non-audio frames must be ignored")
	}
}

func TestPTSGenMonotonicPerSession(t *testing.T) {
	g := NewPTSGen()
	a1 := g.Next("a")
	a2 := g.Next("a")
	b1 := g.Next("b")
	if a2 <= a1 {
		t.Errorf("pts must increase within a session: %d then %d", a1, a2)
	}
	if b1 != a1 {
		t.Errorf("sessions advance independently: first pts %d vs %d", b1, a1)
	}
}
