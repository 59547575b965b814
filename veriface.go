// Package veriface verifies a single enrolled identity from detected face
// observations. Feature records extracted from a detection are scored
// against the identity's stored gallery, one-shot or in an attempt-limited
// verification session.
//
// The engine core is pure computation; persistence and detection are
// boundary collaborators passed in through configuration.
package veriface

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/veriface/veriface/pkg/config"
	"github.com/veriface/veriface/pkg/embedding"
	"github.com/veriface/veriface/pkg/face"
	"github.com/veriface/veriface/pkg/features"
	"github.com/veriface/veriface/pkg/logging"
	"github.com/veriface/veriface/pkg/matching"
	"github.com/veriface/veriface/pkg/scoring"
	"github.com/veriface/veriface/pkg/storage"
	"github.com/veriface/veriface/pkg/verification"
)

// Version is the engine version.
const Version = "0.1.0"

// Engine bundles the feature extractor, scorer, matcher, and gallery store
// behind one surface. An Engine is safe for concurrent use for different
// probes; verification sessions it hands out are not.
type Engine struct {
	cfg     *config.Config
	store   storage.GalleryStore
	scorer  scoring.RecordScorer
	matcher *matching.Matcher
	embCfg  embedding.Config
}

// New builds an Engine from configuration, opening the configured gallery
// store backend.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var store storage.GalleryStore
	var err error
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		store, err = storage.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
	default:
		store, err = storage.NewFileStore(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gallery store: %w", err)
	}

	engine, err := NewWithStore(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	logging.Component("engine").WithFields(logging.Fields{
		"backend":  cfg.Storage.Backend,
		"strategy": cfg.Scoring.Strategy,
	}).Debug("Engine initialized")
	return engine, nil
}

// NewWithStore builds an Engine over a caller-provided gallery store.
func NewWithStore(cfg *config.Config, store storage.GalleryStore) (*Engine, error) {
	embCfg := embedding.Config{IncludeAppearance: cfg.Embedding.IncludeAppearance}

	scorer, err := scoring.ForStrategy(scoring.Strategy(cfg.Scoring.Strategy), embCfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:     cfg,
		store:   store,
		scorer:  scorer,
		matcher: matching.NewMatcher(scorer),
		embCfg:  embCfg,
	}, nil
}

// Close releases the gallery store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// EmbeddingConfig returns the embedding layout the engine builds.
func (e *Engine) EmbeddingConfig() embedding.Config {
	return e.embCfg
}

// ExtractFeatures converts one detected face into a feature record. img may
// be nil; appearance statistics are then omitted.
func (e *Engine) ExtractFeatures(obs face.DetectedFace, img image.Image) (features.Record, error) {
	return features.Extract(obs, img)
}

// BuildEmbedding converts a feature record into the engine's fixed-order
// vector layout.
func (e *Engine) BuildEmbedding(record features.Record) (embedding.Vector, error) {
	return embedding.Build(record, e.embCfg)
}

// Score compares two feature records with the configured strategy.
func (e *Engine) Score(a, b features.Record) float64 {
	return e.scorer.Score(a, b)
}

// ScoreEmbeddings compares two embedding vectors with cosine similarity.
// A dimension mismatch scores 0 and is logged, never fatal.
func (e *Engine) ScoreEmbeddings(a, b embedding.Vector) float64 {
	score, err := scoring.CosineScorer{}.Score(a, b)
	if err != nil {
		logging.Component("engine").WithError(err).Warn("Embedding comparison fell back to zero score")
		return 0
	}
	return score
}

// MatchAgainstGallery scores a probe against every gallery sample and keeps
// the best.
func (e *Engine) MatchAgainstGallery(probe features.Record, gallery matching.Gallery, threshold float64) matching.MatchResult {
	return e.matcher.Match(probe, gallery, threshold)
}

// MatchIdentity loads the identity's stored gallery and runs a one-shot
// match with the configured general threshold.
func (e *Engine) MatchIdentity(ctx context.Context, identity string, probe features.Record) (matching.MatchResult, error) {
	gallery, err := e.store.LoadGallery(ctx, identity)
	if err != nil {
		return matching.MatchResult{}, err
	}
	return e.matcher.Match(probe, gallery.Samples, e.cfg.Matching.MatchThreshold), nil
}

// NewVerificationSession loads the identity's gallery and starts an
// attempt-limited session against it. The gallery is a snapshot; concurrent
// re-enrollment does not affect a running session.
func (e *Engine) NewVerificationSession(ctx context.Context, identity string) (*verification.Session, error) {
	gallery, err := e.store.LoadGallery(ctx, identity)
	if err != nil {
		return nil, err
	}

	session := verification.NewSession(verification.Policy{
		Threshold:   e.cfg.Matching.VerifyThreshold,
		MaxAttempts: e.cfg.Verification.MaxAttempts,
	}, e.matcher, gallery.Samples)

	if err := session.Start(); err != nil {
		return nil, err
	}
	return session, nil
}

// Verify runs one verification session over the given probes, stopping at
// the first match or when attempts run out. It returns the last outcome.
func (e *Engine) Verify(ctx context.Context, identity string, probes []features.Record) (verification.Outcome, error) {
	session, err := e.NewVerificationSession(ctx, identity)
	if err != nil {
		return verification.Outcome{}, err
	}

	var outcome verification.Outcome
	for _, probe := range probes {
		outcome, err = session.Submit(probe)
		if err != nil {
			return outcome, err
		}
		if session.State() == verification.StateDecided {
			break
		}
	}
	return outcome, nil
}

// NewSample turns a feature record into an enrollable gallery sample with
// its embedding built. The label is free-form, typically a source filename.
func (e *Engine) NewSample(record features.Record, label string) (matching.EnrolledSample, error) {
	vec, err := e.BuildEmbedding(record)
	if err != nil {
		return matching.EnrolledSample{}, err
	}
	return matching.EnrolledSample{
		Label:      label,
		Record:     record,
		Embedding:  vec,
		CapturedAt: time.Now(),
	}, nil
}

// Enroll stores gallery samples for an identity, creating the gallery or
// appending to an existing one.
func (e *Engine) Enroll(ctx context.Context, identity string, samples matching.Gallery, metadata map[string]string) error {
	exists, err := e.store.Exists(ctx, identity)
	if err != nil {
		return err
	}

	if !exists {
		return e.store.CreateGallery(ctx, identity, samples, metadata)
	}
	for _, sample := range samples {
		if err := e.store.AddSample(ctx, identity, sample); err != nil {
			return err
		}
	}
	return nil
}

// Gallery returns the stored gallery for an identity.
func (e *Engine) Gallery(ctx context.Context, identity string) (*storage.IdentityGallery, error) {
	return e.store.LoadGallery(ctx, identity)
}

// Identities lists all enrolled identities.
func (e *Engine) Identities(ctx context.Context) ([]string, error) {
	return e.store.ListIdentities(ctx)
}

// Remove deletes an identity's gallery.
func (e *Engine) Remove(ctx context.Context, identity string) error {
	return e.store.DeleteGallery(ctx, identity)
}
