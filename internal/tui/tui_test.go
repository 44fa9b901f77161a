package tui

import (
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"declutter/internal/classify"
	"declutter/internal/processor"
)

func TestModelCountsUpdates(t *testing.T) {
	updates := make(chan processor.ProgressUpdate)
	canceled := false
	m := NewModel(updates, func() { canceled = true })

	var model tea.Model = m
	for _, u := range []processor.ProgressUpdate{
		{TotalDelta: 3},
		{ProcessedDelta: 1, MovedDelta: 1, BytesDelta: 2048, Current: "a.txt"},
		{ProcessedDelta: 1, ExtractedDelta: 1, Current: "b.zip"},
		{ProcessedDelta: 1, ErrorDelta: 1},
	} {
		var cmd tea.Cmd
		model, cmd = model.Update(updateMsg(u))
		require.NotNil(t, cmd)
	}

	got := model.(Model)
	assert.Equal(t, 3, got.total)
	assert.Equal(t, 3, got.processed)
	assert.Equal(t, 1, got.moved)
	assert.Equal(t, 1, got.extracted)
	assert.Equal(t, 1, got.errors)
	assert.Equal(t, int64(2048), got.bytes)
	assert.Equal(t, "b.zip", got.current)

	view := got.View()
	assert.Contains(t, view, "Files: 3/3")
	assert.Contains(t, view, "2.0 kB")

	model, _ = got.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, canceled)
	assert.Contains(t, model.View(), "Stopping")

	model, cmd := model.Update(doneMsg{})
	require.NotNil(t, cmd)
	assert.Empty(t, model.View())
}

func TestListenForUpdatesReportsClose(t *testing.T) {
	updates := make(chan processor.ProgressUpdate)
	close(updates)

	assert.Equal(t, doneMsg{}, listenForUpdates(updates)())
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "[==  ]", renderBar(4, 0.5))
	assert.Equal(t, "[====]", renderBar(4, 2))
	assert.Equal(t, "[    ]", renderBar(4, -1))
}

func TestRenderPlan(t *testing.T) {
	root := filepath.FromSlash("/data/inbox")
	report := &processor.Report{
		Root:   root,
		DryRun: true,
		Results: []processor.Result{
			{
				Entry:          processor.Entry{RelPath: "photo.JPG", Size: 1500},
				Classification: classify.Classification{Category: classify.Image, TypeTag: "JPG"},
				Action:         processor.ActionPlanned,
				Dest:           filepath.Join(root, "images", "JPG", "photo.jpg"),
			},
		},
	}

	out := RenderPlan(report)
	assert.Contains(t, out, "photo.JPG")
	assert.Contains(t, out, "image")
	assert.Contains(t, out, filepath.Join("images", "JPG", "photo.jpg"))
	assert.Contains(t, out, "1.5 kB")
}

func TestRenderReport(t *testing.T) {
	root := filepath.FromSlash("/data/inbox")
	report := &processor.Report{
		Root:    root,
		Summary: processor.Summary{Files: 3, Moved: 1, Failed: 1, NotArchives: 1, DirsKept: 1},
		Failures: []processor.Failure{
			{Path: filepath.Join(root, "bad.txt"), Kind: processor.KindRelocate, Err: errors.New("permission denied\nmore")},
		},
		NotArchives: []processor.Failure{
			{Path: filepath.Join(root, "garbage.zip"), Kind: processor.KindNotArchive, Err: errors.New("not a recognized archive")},
		},
		KeptDirs: []processor.Failure{
			{Path: filepath.Join(root, "keep"), Kind: processor.KindNotEmpty, Err: errors.New("directory not empty")},
		},
	}

	out := RenderReport(report)
	assert.Contains(t, out, "Moved")
	assert.Contains(t, out, "bad.txt")
	assert.Contains(t, out, "permission denied")
	assert.NotContains(t, out, "more")
	assert.Contains(t, out, "garbage.zip")
	assert.Contains(t, out, "keep")
	assert.NotContains(t, out, "Done.")
}
