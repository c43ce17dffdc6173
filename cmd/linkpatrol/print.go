package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rodaine/table"

	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/scheduler"
)

func printOutcome(w io.Writer, outcome *scheduler.Outcome) {
	if outcome.State == scheduler.StateNotDue {
		fmt.Fprintln(w, "not scheduled to run")
		return
	}

	printRecord(w, outcome.Record)

	if outcome.Notification != nil && len(outcome.Notification.Channels) > 0 {
		fmt.Fprintln(w)
		tbl := table.New("Channel", "Delivered", "Error").WithWriter(w)
		for _, ch := range outcome.Notification.Channels {
			tbl.AddRow(ch.Channel, ch.Success, ch.Error)
		}
		tbl.Print()
	}
	if !outcome.NextRunAt.IsZero() {
		fmt.Fprintf(w, "\nnext run at %s\n", outcome.NextRunAt.Format(time.RFC3339))
	}
}

func printRecord(w io.Writer, record *model.ScheduledCheckRecord) {
	fmt.Fprintf(w, "check %s: %s\n", record.ID, record.Status)
	if record.ErrorMessage != "" {
		fmt.Fprintf(w, "error: %s\n", record.ErrorMessage)
	}
	if record.Result != nil {
		printResult(w, record.Result)
	}
}

func printResult(w io.Writer, result *model.LinkCheckResult) {
	fmt.Fprintf(w, "%d post(s), %d link(s), %d working, %d dead\n",
		result.PostsChecked, result.TotalLinks, result.WorkingLinks, len(result.DeadLinks))
	if len(result.DeadLinks) == 0 {
		return
	}

	fmt.Fprintln(w)
	tbl := table.New("Post", "URL", "Error", "Attempts").WithWriter(w)
	for _, dead := range result.DeadLinks {
		tbl.AddRow(postLabel(dead), dead.URL, dead.ErrorKind, dead.Attempts)
	}
	tbl.Print()
}

func printProbes(w io.Writer, outcomes []model.LinkCheckOutcome) {
	tbl := table.New("URL", "Result", "Status", "Latency").WithWriter(w)
	for _, o := range outcomes {
		result := "working"
		if !o.IsWorking() {
			result = string(o.ErrorKind)
		}
		status := "-"
		if o.StatusCode > 0 {
			status = strconv.Itoa(o.StatusCode)
		}
		tbl.AddRow(o.URL, result, status, fmt.Sprintf("%dms", o.LatencyMs))
	}
	tbl.Print()
}

func printHistory(w io.Writer, records []model.ScheduledCheckRecord) {
	tbl := table.New("ID", "Started", "Status", "Links", "Dead", "Posts Affected", "Duration").WithWriter(w)
	for i := range records {
		s := records[i].ToSummary()
		tbl.AddRow(s.ID, s.Timestamp, s.Status, s.TotalLinks, s.DeadLinks, s.PostsAffected, fmt.Sprintf("%dms", s.DurationMs))
	}
	tbl.Print()
}

func postLabel(o model.LinkCheckOutcome) string {
	if o.SourcePostTitle != "" {
		return o.SourcePostTitle
	}
	return o.SourcePostID
}
