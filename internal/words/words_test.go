package words

import "testing"

func TestInitEmbeddedDefaults(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	a, g := Stats()
	if a == 0 || g < a {
		t.Fatalf("Stats() = (%d, %d), want answers > 0 and allowed ⊇ answers", a, g)
	}
}

func TestIsAllowed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !IsAllowed("crane") {
		t.Fatal("answers must be guessable")
	}
	if !IsAllowed("CRANE") {
		t.Fatal("lookup must be case-insensitive")
	}
	if IsAllowed("zzzzz") {
		t.Fatal("garbage must not be guessable")
	}
}

func TestRandomAnswerIsAllowed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for i := 0; i < 20; i++ {
		w := RandomAnswer()
		if len(w) != 5 || !IsAllowed(w) {
			t.Fatalf("RandomAnswer() = %q, want a 5-letter allowed word", w)
		}
	}
}
