package engine

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Result is the bundle a Kernel.Run returns on success.
type Result struct {
	ProfileRunID      string        `json:"profile_run_id"`
	ProfileName       string        `json:"profile_name"`
	FinalClockTime    float64       `json:"final_clock_time"`
	ExecutedEventCount uint64       `json:"executed_event_count"`
	RealTimeDuration  time.Duration `json:"real_time_duration"`
	ModelID           string        `json:"model_id"`
	ModelName         string        `json:"model_name"`
}

// JSON serializes the result record.
func (r *Result) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// CSVHeader returns the column names CSV writes, in the same order as CSVRow.
func CSVHeader() []string {
	return []string{
		"profile_run_id", "profile_name", "final_clock_time",
		"executed_event_count", "real_time_duration_ns", "model_id", "model_name",
	}
}

// CSVRow renders the result as a single CSV record (no header).
func (r *Result) CSVRow() []string {
	return []string{
		r.ProfileRunID,
		r.ProfileName,
		strconv.FormatFloat(r.FinalClockTime, 'g', -1, 64),
		strconv.FormatUint(r.ExecutedEventCount, 10),
		strconv.FormatInt(int64(r.RealTimeDuration), 10),
		r.ModelID,
		r.ModelName,
	}
}

// CSV serializes the result as a complete CSV document (header + one row).
func (r *Result) CSV() (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(CSVHeader()); err != nil {
		return "", err
	}
	if err := w.Write(r.CSVRow()); err != nil {
		return "", err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
