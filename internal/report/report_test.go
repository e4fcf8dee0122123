package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/fatih/color"
)

func withoutColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestReporterLines(t *testing.T) {
	withoutColor(t)
	var out, errOut bytes.Buffer
	r := New(Options{Out: &out, Err: &errOut})

	r.Pending("Starting to patch package: %s ...", "next")
	r.Success("Successfully patched files")
	r.Failure(errors.New("boom"), "Failed to patch files")

	want := "⌛ Starting to patch package: next ...\n✅ Successfully patched files\n❌ Failed to patch files\n"
	if out.String() != want {
		t.Fatalf("out = %q, want %q", out.String(), want)
	}
	if errOut.String() != "boom\n" {
		t.Fatalf("err = %q, want %q", errOut.String(), "boom\n")
	}
}

func TestReporterQuiet(t *testing.T) {
	withoutColor(t)
	var out bytes.Buffer
	r := New(Options{Out: &out, Quiet: true})

	r.Pending("hidden")
	r.Success("hidden")
	r.Print("hidden\n")
	r.Failure(nil, "shown")

	if out.String() != "❌ shown\n" {
		t.Fatalf("out = %q", out.String())
	}
}

type recordingSink struct {
	events []Event
}

func (s *recordingSink) OnEvent(evt Event) { s.events = append(s.events, evt) }

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatalf("FromContext returned nil")
	}
	// discarding reporter must tolerate emits without a sink
	FromContext(context.Background()).Emit(Event{Stage: StageDetect, Status: StatusDone})

	sink := &recordingSink{}
	ctx := WithReporter(context.Background(), New(Options{Sink: sink}))
	FromContext(ctx).Emit(Event{File: "a.js", Stage: StagePatch, Status: StatusDone})
	if len(sink.events) != 1 || sink.events[0].File != "a.js" {
		t.Fatalf("events = %+v", sink.events)
	}
}

func TestChannelSink(t *testing.T) {
	ch := make(chan Event, 1)
	ChannelSink{Ch: ch}.OnEvent(Event{Stage: StageCommit, Status: StatusWorking})
	evt := <-ch
	if evt.Stage != StageCommit {
		t.Fatalf("Stage = %q", evt.Stage)
	}
	ChannelSink{}.OnEvent(Event{}) // nil channel is a no-op
}
