// Package watchstate aggregates watch lifecycle and job-progress events
// into a single observable snapshot for the host UI, so it never has to
// poll the database or the index directly.
package watchstate

import (
	"sort"

	"notebit/pkg/database"
	"notebit/pkg/jobs"
)

// WatchFull is a Watch enriched with its live document count.
type WatchFull struct {
	database.Watch
	DocumentCount uint32 `json:"document_count"`
}

// State is the published aggregate: every known watch plus the reports of
// whatever jobs are currently running.
type State struct {
	Watches    []WatchFull  `json:"watches"`
	JobReports []jobs.Report `json:"job_reports"`
}

func buildState(watches map[uint]database.Watch, counts map[uint]uint32, reports map[uint]jobs.Report) State {
	full := make([]WatchFull, 0, len(watches))
	for id, w := range watches {
		full = append(full, WatchFull{Watch: w, DocumentCount: counts[id]})
	}
	sort.Slice(full, func(i, j int) bool {
		return full[i].CreatedAt.Before(full[j].CreatedAt)
	})

	reportList := make([]jobs.Report, 0, len(reports))
	for _, r := range reports {
		reportList = append(reportList, r)
	}
	sort.Slice(reportList, func(i, j int) bool {
		return reportList[i].Watch.CreatedAt.Before(reportList[j].Watch.CreatedAt)
	})

	return State{Watches: full, JobReports: reportList}
}
