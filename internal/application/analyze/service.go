package analyze

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ideaforge-app/ideaforge-api/internal/domain/ai"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

// MinIdeaLength is the minimum accepted idea length after trimming.
const MinIdeaLength = 3

// DefaultGenerateTimeout bounds the upstream generation call. The original
// behavior had no ceiling at all; the explicit bound is deliberate. There is
// still no automatic retry anywhere in the pipeline.
const DefaultGenerateTimeout = 120 * time.Second

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// CompletionArchive stores raw model output for diagnostics. Optional.
type CompletionArchive interface {
	ArchiveCompletion(ctx context.Context, keyID, rawText string) (string, error)
}

// Service sequences the analysis pipeline: validate input, resolve key, call
// the generation client, normalize, persist. No step is retried; any failure
// short-circuits at the step where it occurred.
type Service struct {
	Keys            keys.Repository
	Analyses        analysis.Repository
	Generator       ai.Generator
	Archive         CompletionArchive
	GenerateTimeout time.Duration
	Log             *zap.Logger
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Login resolves an access code to its key.
func (s *Service) Login(ctx context.Context, code string) (*keys.AccessKey, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Msg: "key is required"}
	}
	return s.Keys.Resolve(ctx, code)
}

// Analyze runs the full pipeline for one idea. Persistence happens only after
// successful normalization; a malformed model reply is never written to the
// store. Each call produces a new record, even for an identical idea.
func (s *Service) Analyze(ctx context.Context, code, idea string) (*analysis.Record, error) {
	idea = strings.TrimSpace(idea)
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Msg: "key is required"}
	}
	if len(idea) < MinIdeaLength {
		return nil, &ValidationError{Msg: "idea must be at least 3 characters"}
	}

	key, err := s.Keys.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	// The generation call outlives a client that stops listening; only the
	// configured ceiling cancels it.
	timeout := s.GenerateTimeout
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	started := time.Now()
	comp, err := s.Generator.Generate(genCtx, idea)
	if err != nil {
		s.logger().Warn("generation failed",
			zap.String("keyId", string(key.ID)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return nil, err
	}
	s.logger().Info("generation completed",
		zap.String("keyId", string(key.ID)),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("citations", len(comp.Citations)))

	s.archive(genCtx, key.ID, comp.Text)

	data, err := analysis.Normalize(comp.Text, comp.Citations, comp.Queries)
	if err != nil {
		return nil, err
	}

	rec, err := s.Analyses.Create(context.WithoutCancel(ctx), key.ID, idea, data)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// History lists the key's most recent analyses, newest first, capped at 20.
func (s *Service) History(ctx context.Context, code string, limit int) ([]*analysis.Record, error) {
	key, err := s.Login(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.Analyses.ListRecent(ctx, key.ID, limit)
}

// Delete removes one record after the ownership check.
func (s *Service) Delete(ctx context.Context, code string, id analysis.RecordID) error {
	if strings.TrimSpace(string(id)) == "" {
		return &ValidationError{Msg: "id is required"}
	}
	key, err := s.Login(ctx, code)
	if err != nil {
		return err
	}
	return s.Analyses.Delete(ctx, id, key.ID)
}

// archive uploads the raw completion, best-effort.
func (s *Service) archive(ctx context.Context, keyID keys.KeyID, rawText string) {
	if s.Archive == nil {
		return
	}
	objectKey, err := s.Archive.ArchiveCompletion(ctx, string(keyID), rawText)
	if err != nil {
		s.logger().Warn("completion archive failed", zap.Error(err))
		return
	}
	s.logger().Debug("completion archived", zap.String("object", objectKey))
}
