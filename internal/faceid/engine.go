// Package faceid wraps the external face-recognition capability: detection,
// same-person verification and optional attribute classification. The kiosk
// treats all of it as a black box behind the Engine and Classifier interfaces.
package faceid

import "context"

// Engine is the face verification port. Implementations must treat "no
// usable face in the image" as a false result, not an error; errors are
// reserved for transport and engine failures.
type Engine interface {
	// DetectFace reports whether the image contains exactly one usable face.
	DetectFace(ctx context.Context, image []byte) (bool, error)
	// Verify reports whether candidate and reference depict the same person.
	// Both images must already be normalized (see imaging.Normalize).
	Verify(ctx context.Context, candidate, reference []byte) (bool, error)
	// Embed returns the face embedding for the single usable face in the
	// image. Returns ErrNoFace when detection finds none.
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// Classifier derives a profile attribute from a face image. Called once at
// registration, never at login.
type Classifier interface {
	Name() string
	ClassifyAttribute(ctx context.Context, image []byte, attribute string) (string, error)
}
