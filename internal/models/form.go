package models

// DefaultClientID is used when the client id field is left blank.
const DefaultClientID = "default"

// FormFields holds the user-entered submission options.
type FormFields struct {
	ClientID           string `json:"clientId"`
	IncludeImages      bool   `json:"includeImages"`
	CustomInstructions string `json:"customInstructions"`
}

// DefaultFormFields returns the values the form is reset to.
func DefaultFormFields() FormFields {
	return FormFields{ClientID: DefaultClientID}
}

// SubmissionRequest is built fresh at submission time from the selected
// file and the form fields.
type SubmissionRequest struct {
	File               *SelectedFile
	ClientID           string
	IncludeImages      bool
	CustomInstructions string
}

// NewSubmissionRequest combines a file with form fields, filling in the
// default client id.
func NewSubmissionRequest(file *SelectedFile, fields FormFields) *SubmissionRequest {
	clientID := fields.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &SubmissionRequest{
		File:               file,
		ClientID:           clientID,
		IncludeImages:      fields.IncludeImages,
		CustomInstructions: fields.CustomInstructions,
	}
}
