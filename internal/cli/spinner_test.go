package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// captureSpinner redirects spinner output for the duration of the test.
func captureSpinner(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := spinnerOut
	spinnerOut = &buf
	t.Cleanup(func() { spinnerOut = prev })
	return &buf
}

func TestRunBatchClearsSpinner(t *testing.T) {
	out, err := execCLI(t, fakeGallery(t), "find", "name", "PowerShellGet", "PSReadLine")
	if err != nil {
		t.Fatalf("find name error: %v", err)
	}
	want := clearSequence(batchMessage(2, "Fake"))
	if got := out.spinner.String(); !strings.HasSuffix(got, want) {
		t.Errorf("spinner output %q does not end with a cleared line", got)
	}
	if strings.Contains(out.stdout.String(), "Resolving") {
		t.Error("spinner message leaked into stdout")
	}
}

func TestRunSearchClearsSpinner(t *testing.T) {
	out, err := execCLI(t, fakeGallery(t), "find", "all")
	if err != nil {
		t.Fatalf("find all error: %v", err)
	}
	if got := out.spinner.String(); !strings.HasSuffix(got, clearSequence("Searching Fake...")) {
		t.Errorf("spinner output %q does not end with a cleared line", got)
	}
}

func TestSpinShowsMessageWhileRunning(t *testing.T) {
	buf := captureSpinner(t)
	msg := batchMessage(3, "PSGallery")

	ran := false
	spin(context.Background(), msg, func() {
		time.Sleep(3 * spinnerInterval)
		ran = true
	})

	if !ran {
		t.Fatal("spin did not run fn")
	}
	got := buf.String()
	if !strings.Contains(got, msg) {
		t.Errorf("spinner never showed %q: %q", msg, got)
	}
	if !strings.HasSuffix(got, clearSequence(msg)) {
		t.Errorf("spinner output %q does not end with a cleared line", got)
	}
}

func TestSpinnerCancelled(t *testing.T) {
	buf := captureSpinner(t)
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Searching PSGallery...")
	s.Start()
	cancel()
	s.Stop()

	if !s.Cancelled() {
		t.Error("Cancelled() = false after the command context ended")
	}
	if !strings.HasSuffix(buf.String(), clearSequence("Searching PSGallery...")) {
		t.Errorf("cancelled spinner left %q", buf.String())
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	buf := captureSpinner(t)
	s := newSpinnerWithContext(context.Background(), "Searching PSGallery...")
	s.Start()
	s.Stop()
	s.Stop()

	if s.Cancelled() {
		t.Error("Cancelled() = true after a plain Stop")
	}
	if n := strings.Count(buf.String(), clearSequence("Searching PSGallery...")); n != 1 {
		t.Errorf("line cleared %d times, want 1", n)
	}
}
