package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestProgressBar_NonTTYRendersOnceOnCompletion(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(10, "Extracting files")
	p.SetWriter(buf)

	p.Increment()
	p.IncrementBy(5)
	if buf.Len() != 0 {
		t.Errorf("expected no output before completion, got %q", buf.String())
	}

	p.IncrementBy(4)
	output := buf.String()
	if !strings.Contains(output, "100%") || !strings.Contains(output, "Extracting files") {
		t.Errorf("expected completed bar, got %q", output)
	}

	// Finish after reaching the total must not print a second line
	p.Finish()
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", buf.String())
	}
}

func TestProgressBar_FinishCompletes(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(100, "Test")
	p.SetWriter(buf)

	p.IncrementBy(30)
	p.Finish()

	if !strings.Contains(buf.String(), "100%") {
		t.Errorf("Finish() should render 100%%, got %q", buf.String())
	}
}

func TestProgressBar_OverLimit(t *testing.T) {
	p := NewProgress(10, "Test")
	p.SetWriter(&bytes.Buffer{})

	p.IncrementBy(25)
	if p.current != 10 {
		t.Errorf("current = %d, want clamped to 10", p.current)
	}
}

func TestProgressBar_ZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	p := NewProgress(0, "Empty archive")
	p.SetWriter(buf)

	p.Finish()
	if !strings.Contains(buf.String(), "0%") {
		t.Errorf("expected 0%% for zero total, got %q", buf.String())
	}
}

func TestProgressBar_Concurrent(t *testing.T) {
	p := NewProgress(1000, "Concurrent")
	p.SetWriter(&bytes.Buffer{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Increment()
			}
		}()
	}
	wg.Wait()

	if p.current != 1000 {
		t.Errorf("current = %d, want 1000", p.current)
	}
}

func TestSpinner_NonTTYPrintsOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	s := NewSpinner("Fetching build list")
	s.SetWriter(buf)

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	if got := buf.String(); got != "Fetching build list...\n" {
		t.Errorf("unexpected spinner output %q", got)
	}
}

func TestSpinner_MultipleStartStop(t *testing.T) {
	s := NewSpinner("Test")
	s.SetWriter(&bytes.Buffer{})

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinner_UpdateMessage(t *testing.T) {
	s := NewSpinner("Initial").WithElapsed()
	s.SetWriter(&bytes.Buffer{})

	s.UpdateMessage("Updated")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message != "Updated" {
		t.Errorf("message = %q, want Updated", s.message)
	}
	if !strings.Contains(s.formatMessage(), "elapsed") {
		t.Errorf("formatMessage() = %q, want elapsed suffix", s.formatMessage())
	}
}

func TestTransfer_NonTTYPassesThrough(t *testing.T) {
	src := strings.NewReader("payload")
	wrap := Transfer(&bytes.Buffer{})

	r, done := wrap(src, 7)
	defer done()

	if r != src {
		t.Error("Transfer should return the reader unchanged when not on a terminal")
	}
}
