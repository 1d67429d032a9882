// Package streaming converts a trained graph into one that runs
// inference, either over whole spectrograms or frame by frame with
// recurrent state held internally or threaded by the caller. The trained
// graph is never modified; every conversion works on an isolated clone.
package streaming

import "errors"

var (
	// ErrInvalidArgument reports a request the converter cannot honor:
	// an unsupported graph kind, mode, or settings combination.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStructuralMismatch reports trained and rebuilt graphs whose
	// layers or parameters cannot be aligned for weight transfer.
	ErrStructuralMismatch = errors.New("structural mismatch")
)
