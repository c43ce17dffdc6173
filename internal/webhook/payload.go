package webhook

import (
	"fmt"
	"strings"
	"time"

	"github.com/dandantas/linkpatrol/internal/model"
)

// DefaultPreviewLimit is the number of dead links listed in the message text
const DefaultPreviewLimit = 10

// Message is the JSON body posted to the webhook. Text makes it render in
// Slack-compatible receivers; the remaining fields carry the full report.
type Message struct {
	Text           string                   `json:"text"`
	Service        string                   `json:"service"`
	CheckID        string                   `json:"check_id"`
	Timestamp      string                   `json:"timestamp"`
	TotalDeadLinks int                      `json:"total_dead_links"`
	PostsAffected  int                      `json:"posts_affected"`
	Summary        string                   `json:"summary"`
	DeadLinks      []model.LinkCheckOutcome `json:"dead_links"`
}

// FormatMessage builds the webhook body for a dead link report. Only the first
// previewLimit links are listed in Text; DeadLinks always carries all of them.
func FormatMessage(payload model.NotificationPayload, previewLimit int) Message {
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, ":warning: Dead link report: %s", payload.SummaryText)

	shown := payload.Details
	if len(shown) > previewLimit {
		shown = shown[:previewLimit]
	}
	for _, dead := range shown {
		fmt.Fprintf(&b, "\n• %s (%s) in %q", dead.URL, dead.ErrorKind, postLabel(dead))
	}
	if rest := payload.TotalDeadLinks - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n…and %d more", rest)
	}

	details := payload.Details
	if details == nil {
		details = []model.LinkCheckOutcome{}
	}

	return Message{
		Text:           b.String(),
		Service:        "linkpatrol",
		CheckID:        payload.SourceRunID,
		Timestamp:      payload.Timestamp.UTC().Format(time.RFC3339),
		TotalDeadLinks: payload.TotalDeadLinks,
		PostsAffected:  payload.PostsAffected,
		Summary:        payload.SummaryText,
		DeadLinks:      details,
	}
}

func postLabel(o model.LinkCheckOutcome) string {
	if o.SourcePostTitle != "" {
		return o.SourcePostTitle
	}
	return o.SourcePostID
}
