package domain

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage enumerates the lifecycle stages of a report generation job. The
// values are stored verbatim in the jobs table and carried on the wire, so
// they must stay lowercase snake case.
type Stage string

const (
	StagePending    Stage = "pending"
	StageProcessing Stage = "processing"
	StageRendering  Stage = "generating_output"
	StageCompiling  Stage = "compiling"
	StageUploading  Stage = "uploading"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// stageRank fixes the order used for monotonicity checks. StageFailed is
// reachable from any non-terminal stage, so it ranks alongside the success
// terminal.
var stageRank = map[Stage]int{
	StagePending:    0,
	StageProcessing: 1,
	StageRendering:  2,
	StageCompiling:  3,
	StageUploading:  4,
	StageCompleted:  5,
	StageFailed:     5,
}

// Rank returns the position of s in the fixed stage order, or -1 for an
// unknown stage.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// Known reports whether s is one of the defined stages.
func (s Stage) Known() bool {
	_, ok := stageRank[s]
	return ok
}

// Terminal reports whether no further transitions are valid after s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

var stageDisplayEN = map[Stage]string{
	StagePending:    "Queued",
	StageProcessing: "Collecting company data",
	StageRendering:  "Writing report",
	StageCompiling:  "Compiling document",
	StageUploading:  "Uploading result",
	StageCompleted:  "Completed",
	StageFailed:     "Failed",
}

var stageDisplayID = map[Stage]string{
	StagePending:    "Dalam antrean",
	StageProcessing: "Mengumpulkan data perusahaan",
	StageRendering:  "Menyusun laporan",
	StageCompiling:  "Mengompilasi dokumen",
	StageUploading:  "Mengunggah hasil",
	StageCompleted:  "Selesai",
	StageFailed:     "Gagal",
}

var displayCaser = cases.Title(language.English)

// Display returns a human readable label for the stage in the given locale
// ("en" or "id"). Unknown stages fall back to a title-cased form of the raw
// value so the UI never shows an empty label.
func (s Stage) Display(locale string) string {
	table := stageDisplayEN
	if locale == "id" {
		table = stageDisplayID
	}
	if label, ok := table[s]; ok {
		return label
	}
	return displayCaser.String(string(s))
}

// Job is one server-executed report generation task.
type Job struct {
	ID           string
	CompanyID    int64
	Stage        Stage
	Progress     int
	Locale       string
	ErrorMessage string
	ResultKey    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StageProgress maps each stage to the progress checkpoint the worker
// reports when entering it. Progress is server-owned and non-decreasing
// while the job is non-terminal.
var StageProgress = map[Stage]int{
	StagePending:    0,
	StageProcessing: 15,
	StageRendering:  40,
	StageCompiling:  70,
	StageUploading:  90,
	StageCompleted:  100,
}
