// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

type (
	Status     string
	Policy     string
	FileStatus string
)

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
	StatusDone       Status = "done"
)

var StatusMap = map[Status]bool{
	StatusCreated:    true,
	StatusInProgress: true,
	StatusFailed:     true,
	StatusDone:       true,
}

// PolicySkip records a broken file and moves on, PolicyAbort stops the batch on the first broken file.
const (
	PolicySkip  Policy = "skip"
	PolicyAbort Policy = "abort"
)

var PolicyMap = map[Policy]bool{
	PolicySkip:  true,
	PolicyAbort: true,
}

const (
	FileConverted FileStatus = "converted"
	FileFailed    FileStatus = "failed"
)

// Icon parameters expected by the website. Not configurable on purpose: the
// contractor batch is always 90° counter-clockwise and too large.
const (
	IconWidth       = 128
	IconHeight      = 128
	IconRotation    = 90 // clockwise
	IconSuffix      = ".jpeg"
	IconFormat      = imaging.JPEG
	IconContentType = JPEG
	DefaultQuality  = 90
)

//---------------------

// FileResult describes what happened to a single entry of the input directory.
type FileResult struct {
	Source       string     `json:"source" yaml:"source"`
	Output       string     `json:"output,omitempty" yaml:"output,omitempty"`
	Status       FileStatus `json:"status" yaml:"status"`
	SourceFormat string     `json:"source_format,omitempty" yaml:"source_format,omitempty"`
	SourceWidth  int        `json:"source_width,omitempty" yaml:"source_width,omitempty"`
	SourceHeight int        `json:"source_height,omitempty" yaml:"source_height,omitempty"`
	Bytes        int64      `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Error        string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the outcome of one converter pass.
type Report struct {
	BatchID    uuid.UUID    `json:"batch_id" yaml:"batch_id"`
	InputDir   string       `json:"input_dir" yaml:"input_dir"`
	OutputDir  string       `json:"output_dir" yaml:"output_dir"`
	Policy     Policy       `json:"policy" yaml:"policy"`
	Aborted    bool         `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Total      int          `json:"total" yaml:"total"`
	Converted  int          `json:"converted" yaml:"converted"`
	Failed     int          `json:"failed" yaml:"failed"`
	Ignored    int          `json:"ignored" yaml:"ignored"`
	StartedAt  time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time    `json:"finished_at" yaml:"finished_at"`
	Files      []FileResult `json:"files" yaml:"files"`
}

// Add appends a file result and keeps the counters in sync.
func (r *Report) Add(res FileResult) {
	r.Files = append(r.Files, res)
	r.Total++
	switch res.Status {
	case FileConverted:
		r.Converted++
	case FileFailed:
		r.Failed++
	}
}

// Failures returns only the failed entries.
func (r *Report) Failures() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Status == FileFailed {
			out = append(out, f)
		}
	}
	return out
}

//---------------------

type Batch struct {
	UID       uuid.UUID   `json:"uid"`
	InputDir  string      `json:"input_dir"`
	OutputDir string      `json:"output_dir"`
	Policy    Policy      `json:"policy"`
	Status    Status      `json:"status,omitempty"`
	Converted int         `json:"converted"`
	Failed    int         `json:"failed"`
	Ignored   int         `json:"ignored"`
	Report    *Report     `json:"-"`
	ErrMsg    StringSlice `json:"error,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

// ApplyReport copies report counters into the batch.
func (b *Batch) ApplyReport(r *Report) {
	if r == nil {
		return
	}
	b.Report = r
	b.Converted = r.Converted
	b.Failed = r.Failed
	b.Ignored = r.Ignored
}

type BatchCreateData struct {
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
	Policy    string `json:"policy"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByUUID    = "uid"
	ByCreated = "created"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500      error = errors.New("something went wrong. Try again later") // 500
	ErrIncorrectQuery error = errors.New("incorrect query parameters")            // 400
	ErrIncorrectID    error = errors.New("incorrect batch UUID")                  // 400
	ErrBatchNotFound  error = errors.New("specified batch UUID doesn't exist")    // 404
	ErrReportNotReady error = errors.New("requested batch is not processed yet")  // 404
	ErrEmptyInputDir  error = errors.New("input directory is required")           // 400
	ErrEmptyOutputDir error = errors.New("output directory is required")          // 400
	ErrSameDirs       error = errors.New("input and output must differ")          // 400

	ErrIncorrectPolicy         error = errors.New("unsupported error policy")  // 400
	ErrIncorrectStatus         error = errors.New("incorrect status provided") // 400
	ErrUnsupportedReportFormat error = errors.New("unsupported report format") // 400

	ErrNotImage         error = errors.New("file is not a decodable image")
	ErrInputDir         error = errors.New("input directory is not readable")
	ErrOutputUnwritable error = errors.New("output location is not writable")
	ErrBatchAborted     error = errors.New("batch aborted")
	ErrBatchInProgress  error = errors.New("batch is already in progress")
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	TIFF = "image/tiff"
	BMP  = "image/bmp"
	WEBP = "image/webp"
)

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.GIF:  GIF,
	imaging.PNG:  PNG,
	imaging.TIFF: TIFF,
	imaging.BMP:  BMP,
}
