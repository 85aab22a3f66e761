package assessment

import "fmt"

const UploadAccepted = "MRI image added successfully."

// UploadReference records an MRI file accepted for local display. The file
// itself is never forwarded to the prediction service.
type UploadReference struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
}

// Describe renders the file as "name (X.XX MB)".
func (u UploadReference) Describe() string {
	return fmt.Sprintf("%s (%.2f MB)", u.Name, float64(u.Size)/1024/1024)
}
