package dto

type AnalyzeImageResponse struct {
	Report    string `json:"report"`
	Prompt    string `json:"prompt"`
	MIME      string `json:"mime"`
	ErrorKind string `json:"error_kind,omitempty"`
}
