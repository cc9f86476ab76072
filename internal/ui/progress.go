package ui

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"github.com/g5becks/impex/internal/workspace"
)

func NewProgressWriter() progress.Writer {
	writer := progress.NewWriter()
	writer.SetAutoStop(true)
	writer.SetTrackerLength(30)
	writer.SetStyle(progress.StyleBlocks)
	writer.Style().Visibility.ETA = true
	writer.Style().Visibility.Speed = true
	writer.Style().Visibility.Value = true

	return writer
}

// CheckProgress counts parsed documents on a single tracker. The total is
// unknown until every source is loaded, so the tracker is indeterminate.
type CheckProgress struct {
	writer  progress.Writer
	tracker *progress.Tracker
}

func NewCheckProgress(w io.Writer) *CheckProgress {
	writer := NewProgressWriter()
	writer.SetOutputWriter(w)

	tracker := &progress.Tracker{Message: "checking documents", Units: progress.UnitsDefault}
	writer.AppendTracker(tracker)

	return &CheckProgress{writer: writer, tracker: tracker}
}

func (c *CheckProgress) Start() {
	go c.writer.Render()
}

// HandleEvent is the callback wired into workspace.Options.OnEvent.
func (c *CheckProgress) HandleEvent(e workspace.Event) {
	if e.Kind == workspace.EventFileDone {
		c.tracker.Increment(1)
	}
}

func (c *CheckProgress) Checked() int64 {
	return c.tracker.Value()
}

// Stop marks the tracker done and waits for the renderer to flush.
func (c *CheckProgress) Stop() {
	c.tracker.MarkAsDone()
	for c.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}
