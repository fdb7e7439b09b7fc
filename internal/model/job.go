package model

// JobState is the discriminant of JobStatus.
type JobState string

const (
	JobWaiting JobState = "waiting"
	JobDone    JobState = "done"
	JobError   JobState = "error"
)

// JobResult is the payload of a finished job.
type JobResult struct {
	VideoURL        string
	VideoURL720     string
	OriginalBetLink string
}

// PreferredURL returns the 720p rendition when present.
func (r JobResult) PreferredURL() string {
	if r.VideoURL720 != "" {
		return r.VideoURL720
	}
	return r.VideoURL
}

// JobStatus is {waiting, done(result), error(message)}.
// Result is meaningful only for JobDone, Message only for JobError.
type JobStatus struct {
	State   JobState
	Result  JobResult
	Message string
}

// Terminal reports whether polling should stop.
func (s JobStatus) Terminal() bool {
	return s.State == JobDone || s.State == JobError
}
