package report

import "time"

// Stage describes a phase of a patch run.
type Stage string

const (
	// StageDetect is package manager detection.
	StageDetect Stage = "detect"
	// StagePrepare materialises the staging directory.
	StagePrepare Stage = "prepare"
	// StagePatch rewrites target files.
	StagePatch Stage = "patch"
	// StageCommit hands the staging directory back to the package manager.
	StageCommit Stage = "commit"
)

// Status captures progress within a stage.
type Status string

const (
	// StatusQueued indicates the file has not been touched yet.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage or file is in progress.
	StatusWorking Status = "working"
	// StatusDone indicates success.
	StatusDone Status = "done"
	// StatusSkipped indicates a file that was already patched.
	StatusSkipped Status = "skipped"
	// StatusError indicates failure.
	StatusError Status = "error"
)

// Event reports progress for a file, or for the whole run when File is empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}
