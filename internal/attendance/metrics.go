package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_submissions_total",
		Help: "Completed attendance submissions.",
	})
	submissionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_submission_failures_total",
		Help: "Attendance submissions aborted by a persist failure.",
	})
	recordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_records_written_total",
		Help: "Attendance records written, partitioned by write kind.",
	}, []string{"kind"})
)
