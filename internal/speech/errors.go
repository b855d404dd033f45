package speech

// UploadError indicates the audio upload was rejected by the service.
type UploadError struct {
	Status string
}

func (e *UploadError) Error() string {
	return "upload failed: " + e.Status
}

// SubmitError indicates the transcription job could not be created.
type SubmitError struct {
	Status string
}

func (e *SubmitError) Error() string {
	return "submit failed: " + e.Status
}

// JobError indicates the transcription job reached the error terminal
// status. Remote carries the service's error description verbatim.
type JobError struct {
	Remote string
}

func (e *JobError) Error() string {
	return "transcription failed: " + e.Remote
}
