package notifier

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/dandantas/linkpatrol/internal/model"
)

// DefaultPreviewLimit is the number of dead links listed in rendered content
const DefaultPreviewLimit = 10

type view struct {
	Summary        string
	CheckID        string
	Timestamp      string
	TotalDeadLinks int
	PostsAffected  int
	Preview        []model.LinkCheckOutcome
	Remaining      int
}

func newView(payload model.NotificationPayload, limit int) view {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	preview := payload.Details
	if len(preview) > limit {
		preview = preview[:limit]
	}

	return view{
		Summary:        payload.SummaryText,
		CheckID:        payload.SourceRunID,
		Timestamp:      payload.Timestamp.UTC().Format(time.RFC1123),
		TotalDeadLinks: payload.TotalDeadLinks,
		PostsAffected:  payload.PostsAffected,
		Preview:        preview,
		Remaining:      payload.TotalDeadLinks - len(preview),
	}
}

var funcs = map[string]any{
	"post": func(o model.LinkCheckOutcome) string {
		if o.SourcePostTitle != "" {
			return o.SourcePostTitle
		}
		return o.SourcePostID
	},
}

var textBody = texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(
	`Dead link report ({{.Timestamp}})

{{.Summary}}

Dead links: {{.TotalDeadLinks}}
Posts affected: {{.PostsAffected}}
{{range .Preview}}
- {{.URL}}
  error: {{.ErrorKind}}{{if .StatusCode}} (HTTP {{.StatusCode}}){{end}}
  post: {{post .}}
{{end}}{{if gt .Remaining 0}}
...and {{.Remaining}} more (see dead-links.csv)
{{end}}
Check ID: {{.CheckID}}
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Funcs(funcs).Parse(
	`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
<h2>Dead link report</h2>
<p>{{.Summary}}</p>
<p><strong>Dead links:</strong> {{.TotalDeadLinks}}<br>
<strong>Posts affected:</strong> {{.PostsAffected}}</p>
<table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse">
<tr><th align="left">URL</th><th align="left">Error</th><th align="left">Post</th></tr>
{{range .Preview}}<tr><td><a href="{{.URL}}">{{.URL}}</a></td><td>{{.ErrorKind}}</td><td>{{post .}}</td></tr>
{{end}}</table>
{{if gt .Remaining 0}}<p>...and {{.Remaining}} more. The full list is attached as dead-links.csv.</p>
{{end}}<p style="color: #888">{{.Timestamp}} &middot; check {{.CheckID}}</p>
</body>
</html>
`))

// Subject renders the email subject line
func Subject(payload model.NotificationPayload) string {
	return fmt.Sprintf("[linkpatrol] %d dead %s found in %d %s",
		payload.TotalDeadLinks, plural(payload.TotalDeadLinks, "link", "links"),
		payload.PostsAffected, plural(payload.PostsAffected, "post", "posts"),
	)
}

// RenderText renders the plain text body, listing at most limit links
func RenderText(payload model.NotificationPayload, limit int) (string, error) {
	var buf bytes.Buffer
	if err := textBody.Execute(&buf, newView(payload, limit)); err != nil {
		return "", fmt.Errorf("render text body: %w", err)
	}
	return buf.String(), nil
}

// RenderHTML renders the HTML body, listing at most limit links
func RenderHTML(payload model.NotificationPayload, limit int) (string, error) {
	var buf bytes.Buffer
	if err := htmlBody.Execute(&buf, newView(payload, limit)); err != nil {
		return "", fmt.Errorf("render html body: %w", err)
	}
	return buf.String(), nil
}

type csvRow struct {
	URL        string `csv:"url"`
	ErrorKind  string `csv:"error_kind"`
	StatusCode int    `csv:"status_code"`
	LatencyMs  int64  `csv:"latency_ms"`
	Attempts   int    `csv:"attempts"`
	PostID     string `csv:"post_id"`
	PostTitle  string `csv:"post_title"`
	CheckedAt  string `csv:"checked_at"`
}

// RenderCSV renders every dead link of the payload as CSV
func RenderCSV(payload model.NotificationPayload) ([]byte, error) {
	rows := make([]csvRow, 0, len(payload.Details))
	for _, d := range payload.Details {
		rows = append(rows, csvRow{
			URL:        d.URL,
			ErrorKind:  string(d.ErrorKind),
			StatusCode: d.StatusCode,
			LatencyMs:  d.LatencyMs,
			Attempts:   d.Attempts,
			PostID:     d.SourcePostID,
			PostTitle:  d.SourcePostTitle,
			CheckedAt:  d.CheckedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return data, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
