// Package kiosk implements the face-match gated identity workflow:
// registration, login, verification probes and account deletion. All
// outcomes are reported as data; the web shell maps them to HTTP.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/faceid"
	"github.com/kozaktomas/face-kiosk/internal/imaging"
)

// ErrEmptyUsername is returned when an operation receives a username that
// normalizes to the empty string.
var ErrEmptyUsername = errors.New("username is required")

// Options selects the installation variant. One service covers all
// deployments; the flags come from the installation profile.
type Options struct {
	// ClassifyAttributes enables the one-time gender classification at
	// registration. Requires a configured classifier.
	ClassifyAttributes bool
	// Roles enables the admin/guest split. When disabled every identity
	// is created and treated as a guest.
	Roles bool
	// MaxImageSize bounds the longest image edge before engine calls.
	// Zero means imaging.MaxImageSize.
	MaxImageSize int
}

// RegisterOutcome reports the result of a registration attempt.
type RegisterOutcome struct {
	UserIsAvailable bool `json:"user_is_available"`
	NoFace          bool `json:"no_face"`
}

// LoginOutcome reports the result of a login or verification probe.
// Identity is set only when IsMatch is true.
type LoginOutcome struct {
	IsMatch      bool `json:"is_match"`
	NoFace       bool `json:"no_face"`
	UserNotFound bool `json:"user_not_found"`

	Identity *directory.Identity `json:"-"`
}

// embeddingVerifier is the fast path for engines that can compare a
// candidate image against a cached reference embedding directly.
type embeddingVerifier interface {
	VerifyEmbedding(ctx context.Context, candidate []byte, reference []float32) (bool, error)
}

// Service is the session/identity state machine. It holds no session
// state itself; the web shell binds outcomes to cookies.
type Service struct {
	store      directory.Store
	engine     faceid.Engine
	classifier faceid.Classifier
	index      *directory.FaceIndex
	opts       Options
}

// NewService wires the state machine to its collaborators. classifier
// and index may be nil; the corresponding features degrade gracefully.
func NewService(store directory.Store, engine faceid.Engine, classifier faceid.Classifier, index *directory.FaceIndex, opts Options) *Service {
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = imaging.MaxImageSize
	}
	return &Service{
		store:      store,
		engine:     engine,
		classifier: classifier,
		index:      index,
		opts:       opts,
	}
}

// prepareImage decodes a data URI and normalizes the pixels for the
// engine. Any decoding failure means no usable face.
func (s *Service) prepareImage(imageDataURI string) ([]byte, bool) {
	data, err := imaging.DecodeDataURI(imageDataURI)
	if err != nil {
		return nil, false
	}
	normalized, err := imaging.Normalize(data, s.opts.MaxImageSize)
	if err != nil {
		return nil, false
	}
	return normalized, true
}

// Register enrolls a new identity. It never authenticates the caller.
// A taken username is reported before any engine call, the directory
// write happens only after a usable face is confirmed, and the create
// is atomic: a concurrent duplicate loses cleanly.
func (s *Service) Register(ctx context.Context, username, imageDataURI string, profile directory.Profile) (*RegisterOutcome, error) {
	username = directory.NormalizeUsername(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		return &RegisterOutcome{UserIsAvailable: false}, nil
	} else if !errors.Is(err, directory.ErrNotFound) {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	image, ok := s.prepareImage(imageDataURI)
	if !ok {
		return &RegisterOutcome{NoFace: true}, nil
	}

	detected, err := s.engine.DetectFace(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	if !detected {
		return &RegisterOutcome{NoFace: true}, nil
	}

	embedding, err := s.engine.Embed(ctx, image)
	if err != nil {
		if errors.Is(err, faceid.ErrNoFace) {
			return &RegisterOutcome{NoFace: true}, nil
		}
		// The face is already confirmed; a failed embedding only loses
		// the cached fast path.
		log.Printf("embedding failed for %q, storing without cache: %v", username, err)
		embedding = nil
	}

	if s.opts.ClassifyAttributes && s.classifier != nil && profile.Gender == "" {
		label, err := s.classifier.ClassifyAttribute(ctx, image, "gender")
		if err != nil {
			log.Printf("attribute classification failed for %q: %v", username, err)
		} else {
			profile.Gender = label
		}
	}

	identity := &directory.Identity{
		ID:                 uuid.NewString(),
		Username:           username,
		Role:               directory.RoleGuest,
		ReferenceImage:     imaging.EncodeDataURI(image),
		ReferenceEmbedding: embedding,
		Profile:            profile,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, directory.ErrUsernameTaken) {
			return &RegisterOutcome{UserIsAvailable: false}, nil
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	if s.index != nil && len(embedding) > 0 {
		s.index.Add(identity)
	}

	return &RegisterOutcome{UserIsAvailable: true}, nil
}

// Login checks a username and face image against the directory. The
// ordering is fixed: existence, then detection, then verification.
// Session binding is the caller's job.
func (s *Service) Login(ctx context.Context, username, imageDataURI string) (*LoginOutcome, error) {
	username = directory.NormalizeUsername(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}

	identity, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return &LoginOutcome{UserNotFound: true}, nil
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	image, ok := s.prepareImage(imageDataURI)
	if !ok {
		return &LoginOutcome{NoFace: true}, nil
	}

	detected, err := s.engine.DetectFace(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("detect face: %w", err)
	}
	if !detected {
		return &LoginOutcome{NoFace: true}, nil
	}

	match, err := s.verifyAgainstReference(ctx, image, identity)
	if err != nil {
		return nil, err
	}
	if !match {
		return &LoginOutcome{}, nil
	}

	if !s.opts.Roles {
		identity.Role = directory.RoleGuest
	}
	return &LoginOutcome{IsMatch: true, Identity: identity}, nil
}

// CheckFace is the verification probe behind POST /check_face. Same
// ordering as Login, no session effect.
func (s *Service) CheckFace(ctx context.Context, username, imageDataURI string) (*LoginOutcome, error) {
	return s.Login(ctx, username, imageDataURI)
}

func (s *Service) verifyAgainstReference(ctx context.Context, candidate []byte, identity *directory.Identity) (bool, error) {
	if ev, ok := s.engine.(embeddingVerifier); ok && len(identity.ReferenceEmbedding) > 0 {
		match, err := ev.VerifyEmbedding(ctx, candidate, identity.ReferenceEmbedding)
		if err != nil {
			return false, fmt.Errorf("verify against cached embedding: %w", err)
		}
		return match, nil
	}

	reference, err := imaging.DecodeDataURI(identity.ReferenceImage)
	if err != nil {
		return false, fmt.Errorf("decode reference image: %w", err)
	}
	match, err := s.engine.Verify(ctx, candidate, reference)
	if err != nil {
		return false, fmt.Errorf("verify face: %w", err)
	}
	return match, nil
}

// Identify runs a 1:N lookup of a probe face against the enrolled
// identities. Admin-only at the route level.
func (s *Service) Identify(ctx context.Context, imageDataURI string, limit int) ([]directory.IndexMatch, error) {
	if s.index == nil {
		return nil, errors.New("face index not enabled")
	}

	image, ok := s.prepareImage(imageDataURI)
	if !ok {
		return nil, faceid.ErrNoFace
	}

	embedding, err := s.engine.Embed(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("embed probe: %w", err)
	}

	return s.index.Search(embedding, limit)
}

// SelfDelete removes the acting identity's own record. A missing record
// is tolerated; the caller clears the session either way.
func (s *Service) SelfDelete(ctx context.Context, identityID string) error {
	identity, err := s.store.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	return s.deleteIdentity(ctx, identity)
}

// AdminDelete removes the target identity unconditionally and returns
// its ID so the caller can invalidate the target's sessions. The acting
// admin's session is untouched. A missing target is a tolerated no-op
// reported as an empty ID.
func (s *Service) AdminDelete(ctx context.Context, username string) (string, error) {
	username = directory.NormalizeUsername(username)
	if username == "" {
		return "", ErrEmptyUsername
	}

	identity, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup identity: %w", err)
	}

	if err := s.deleteIdentity(ctx, identity); err != nil {
		return "", err
	}
	return identity.ID, nil
}

func (s *Service) deleteIdentity(ctx context.Context, identity *directory.Identity) error {
	if err := s.store.Delete(ctx, identity.Username); err != nil && !errors.Is(err, directory.ErrNotFound) {
		return fmt.Errorf("delete identity: %w", err)
	}
	if s.index != nil {
		s.index.Delete(identity.ID)
	}
	return nil
}

// Profile returns the identity behind an ID for the authenticated view.
func (s *Service) Profile(ctx context.Context, identityID string) (*directory.Identity, error) {
	identity, err := s.store.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// ListOthers returns every identity except the given one, for the admin
// view.
func (s *Service) ListOthers(ctx context.Context, excludeID string) ([]directory.Identity, error) {
	identities, err := s.store.List(ctx, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	return identities, nil
}
