package models

// ViewState is the mutually exclusive top-level UI mode.
type ViewState string

const (
	ViewUpload     ViewState = "upload"
	ViewProcessing ViewState = "processing"
	ViewResult     ViewState = "result"
	ViewError      ViewState = "error"
)

// UploadState is the sub-state of the upload view.
type UploadState string

const (
	UploadEmpty        UploadState = "empty"
	UploadFileSelected UploadState = "file_selected"
)

// StepStatus is the marker of a progress step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepActive    StepStatus = "active"
	StepCompleted StepStatus = "completed"
)

// ProgressStep is one entry of the processing animation.
type ProgressStep struct {
	Label   string     `json:"label"`
	Percent int        `json:"percent"`
	Status  StepStatus `json:"status"`
}

// ProgressView is the display state of the processing section.
type ProgressView struct {
	StatusText string         `json:"statusText"`
	Percent    int            `json:"percent"`
	Steps      []ProgressStep `json:"steps"`
}

// ResultView holds the display strings of the result section.
type ResultView struct {
	Pages        string   `json:"pages"`
	Time         string   `json:"time"`
	Project      string   `json:"project"`
	Area         string   `json:"area"`
	Warnings     []string `json:"warnings,omitempty"`
	ShowWarnings bool     `json:"showWarnings"`
	MemorialText string   `json:"memorialText"`
}

// View is a complete snapshot of what the interface shows.
type View struct {
	Revision      uint64       `json:"revision"`
	State         ViewState    `json:"state"`
	Upload        UploadState  `json:"upload"`
	File          *FileInfo    `json:"file,omitempty"`
	Fields        FormFields   `json:"fields"`
	SubmitEnabled bool         `json:"submitEnabled"`
	Progress      ProgressView `json:"progress"`
	Result        *ResultView  `json:"result,omitempty"`
	ErrorMessage  string       `json:"errorMessage,omitempty"`
	Notice        string       `json:"notice,omitempty"`
}
