package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/scheduler"
)

func TestPrintOutcome_NotDue(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, &scheduler.Outcome{State: scheduler.StateNotDue})

	assert.Equal(t, "not scheduled to run\n", buf.String())
}

func TestPrintOutcome_Completed(t *testing.T) {
	var buf bytes.Buffer
	printOutcome(&buf, &scheduler.Outcome{
		State:   scheduler.StateCompleted,
		CheckID: "check-1",
		Record: &model.ScheduledCheckRecord{
			ID:     "check-1",
			Status: model.CheckStatusCompleted,
			Result: &model.LinkCheckResult{
				TotalLinks:   3,
				WorkingLinks: 2,
				PostsChecked: 1,
				DeadLinks: []model.LinkCheckOutcome{{
					URL:             "https://example.com/gone",
					ErrorKind:       model.HTTPErrorKind(404),
					Attempts:        1,
					SourcePostID:    "p1",
					SourcePostTitle: "Hello",
				}},
			},
		},
		Notification: &model.NotificationReport{Channels: []model.ChannelResult{
			{Channel: model.ChannelWebhook, Success: true},
		}},
		NextRunAt: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	})

	out := buf.String()
	assert.Contains(t, out, "check check-1: completed")
	assert.Contains(t, out, "1 post(s), 3 link(s), 2 working, 1 dead")
	assert.Contains(t, out, "https://example.com/gone")
	assert.Contains(t, out, "http_404")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "webhook")
	assert.Contains(t, out, "next run at 2026-03-11T09:00:00Z")
}

func TestPrintProbes(t *testing.T) {
	var buf bytes.Buffer
	printProbes(&buf, []model.LinkCheckOutcome{
		{URL: "https://ok.example.com", StatusCode: 200, LatencyMs: 12},
		{URL: "https://down.example.com", ErrorKind: model.ErrorKindNetwork},
	})

	out := buf.String()
	assert.Contains(t, out, "working")
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "12ms")
	assert.Contains(t, out, "network_error")
}

func TestReadPosts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "post.html")
	require.NoError(t, os.WriteFile(path, []byte(`<a href="https://example.com">x</a>`), 0o600))

	posts, err := readPosts([]string{path})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, path, posts[0].ID)
	assert.Equal(t, "post.html", posts[0].Title)
	assert.Contains(t, posts[0].ContentHTML, "https://example.com")

	_, err = readPosts([]string{filepath.Join(dir, "missing.html")})
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	root := newRootCommand()
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "linkpatrol version 1.0.0\n", buf.String())
}
