package entity

import "errors"

// Failure taxonomy for a job's lifetime. Stage failures are fatal to the
// job except per-segment synthesis errors, which the runner recovers
// locally. ErrInvalidCredential is kept distinct from generic condense
// failures so callers can re-prompt for a key instead of retrying.
var (
	ErrValidation        = errors.New("invalid submission")
	ErrExtraction        = errors.New("could not extract text from the input")
	ErrInvalidCredential = errors.New("invalid API key")
	ErrSegmentation      = errors.New("could not produce text segments")
	ErrSynthesis         = errors.New("could not synthesize any audio clips")
	ErrAssembly          = errors.New("could not assemble the audio clips")
	ErrInfrastructure    = errors.New("backing service unavailable")
)

// Kind names the taxonomy bucket an error belongs to. Unrecognized
// errors are internal faults.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrExtraction):
		return "ExtractionError"
	case errors.Is(err, ErrInvalidCredential):
		return "AuthenticationError"
	case errors.Is(err, ErrSegmentation):
		return "SegmentationError"
	case errors.Is(err, ErrSynthesis):
		return "SynthesisError"
	case errors.Is(err, ErrAssembly):
		return "AssemblyError"
	case errors.Is(err, ErrInfrastructure):
		return "InfrastructureError"
	}
	return "InternalError"
}

// Describe renders an error as the short human-readable cause stored on
// a failed record. The kind prefix keeps failure classes distinguishable
// by callers polling the status surface.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return Kind(err) + ": " + err.Error()
}
