package logging

import "strings"

const shortJobIDLength = 8

// FormatSubject builds the job/stage subject string used in console output.
// Job identifiers are shortened to their first eight characters.
func FormatSubject(jobID, stage string) string {
	jobID = strings.TrimSpace(jobID)
	stage = strings.TrimSpace(stage)
	if len(jobID) > shortJobIDLength {
		jobID = jobID[:shortJobIDLength]
	}
	switch {
	case jobID != "" && stage != "":
		return "Job " + jobID + " (" + stage + ")"
	case jobID != "":
		return "Job " + jobID
	default:
		return stage
	}
}
