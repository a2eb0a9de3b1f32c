package domain

import "testing"

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestStatus_IsValid(t *testing.T) {
	if Status("queued").IsValid() {
		t.Fatal("unknown status must not validate")
	}
	if !StatusProcessing.IsValid() {
		t.Fatal("processing must validate")
	}
}

func TestEnqueueRequest_Validate_MultibytePayload(t *testing.T) {
	// Length limits count runes, not bytes: 280 emoji are a valid payload.
	payload := ""
	for i := 0; i < 280; i++ {
		payload += "🎙"
	}
	req := EnqueueRequest{TargetID: "123", PayloadText: payload}
	if err := req.Validate(); err != nil {
		t.Fatalf("280-rune payload must validate, got %v", err)
	}

	req.PayloadText += "!"
	if err := req.Validate(); err != ErrInvalidPayload {
		t.Fatalf("281-rune payload must fail, got %v", err)
	}
}
