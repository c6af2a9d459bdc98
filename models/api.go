package models

// ChatRequest is the inbound chat payload
type ChatRequest struct {
	Message     string `json:"message"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// ChatResponse is returned by the chat and websocket endpoints
type ChatResponse struct {
	Success          bool     `json:"success"`
	Response         string   `json:"response"`
	Source           string   `json:"source"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	Category         string   `json:"category,omitempty"`
	MatchType        string   `json:"matchType,omitempty"`
	Timestamp        string   `json:"timestamp"`
}

// FileResponse is returned by the document analysis endpoint
type FileResponse struct {
	Success             bool        `json:"success"`
	Response            string      `json:"response"`
	Source              string      `json:"source"`
	FileName            string      `json:"fileName"`
	FileType            string      `json:"fileType"`
	ExtractedTextLength int         `json:"extractedTextLength"`
	AdditionalInfo      *Extraction `json:"additionalInfo"`
	Timestamp           string      `json:"timestamp"`
}

// Extraction describes text pulled out of an uploaded file
type Extraction struct {
	Text     string   `json:"-"`
	Type     string   `json:"type"`
	Pages    int      `json:"pages,omitempty"`
	Warnings []string `json:"warnings,omitempty"`

	// OCR only: mean word confidence in [0, 100] and the recognized languages
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// DatasetEntryRequest is the admin payload for add/update/delete
type DatasetEntryRequest struct {
	Category string   `json:"category"`
	Key      string   `json:"key"`
	Response string   `json:"response"`
	Tags     []string `json:"tags"`
}
