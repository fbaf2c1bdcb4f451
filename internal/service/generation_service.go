package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/pricing"
	"github.com/vidora/vidora-backend/pkg/falai"
	"github.com/vidora/vidora-backend/pkg/storage"
)

// GenerationService runs one generation job end to end: hold the credits,
// run the provider job, then confirm the hold on success or release it on
// any failure. Every hold placed here reaches exactly one terminal state.
type GenerationService struct {
	generations GenerationStore
	ledger      *LedgerService
	runner      falai.Runner
	archiver    storage.Archiver
	logger      *zap.Logger
}

func NewGenerationService(
	generations GenerationStore,
	ledger *LedgerService,
	runner falai.Runner,
	archiver storage.Archiver,
	logger *zap.Logger,
) *GenerationService {
	return &GenerationService{
		generations: generations,
		ledger:      ledger,
		runner:      runner,
		archiver:    archiver,
		logger:      logger,
	}
}

// Create starts a generation. On insufficient credits the job is recorded
// as failed and InsufficientCreditsError is returned with the shortfall.
func (s *GenerationService) Create(ctx context.Context, userID uint, req models.CreateGenerationRequest) (*models.Generation, error) {
	cfg, ok := pricing.Tool(req.Kind, req.Tool)
	if !ok {
		return nil, models.ErrInvalidTool
	}

	gen := &models.Generation{
		UserID:      userID,
		Kind:        req.Kind,
		Tool:        req.Tool,
		ModelID:     cfg.Model,
		Prompt:      req.Prompt,
		CreditsUsed: cfg.Credits,
		Status:      models.GenerationPending,
	}
	if err := s.generations.Create(gen); err != nil {
		return nil, err
	}

	hold, err := s.ledger.PlaceHold(userID, req.Kind, gen.ID, cfg.Credits)
	if err != nil {
		var insufficient *models.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			gen.Status = models.GenerationFailed
			gen.ErrorMessage = insufficient.Error()
			if uerr := s.generations.Update(gen); uerr != nil {
				s.logger.Error("failed to record generation failure",
					zap.Uint("generation_id", gen.ID), zap.Error(uerr))
			}
		}
		return nil, err
	}

	// From here the hold must end up confirmed or released, whatever
	// happens to the job.
	confirmed := false
	defer func() {
		if confirmed {
			return
		}
		if _, _, rerr := s.ledger.ReleaseHold(hold.ID); rerr != nil {
			s.logger.Error("failed to release hold after unsuccessful generation",
				zap.Uint("hold_id", hold.ID), zap.Error(rerr))
		}
	}()

	gen.Status = models.GenerationProcessing
	if err := s.generations.Update(gen); err != nil {
		return nil, err
	}

	result, err := s.runner.Run(ctx, cfg.Model, s.buildInput(req, cfg))
	if err != nil {
		gen.Status = models.GenerationFailed
		gen.ErrorMessage = err.Error()
		if uerr := s.generations.Update(gen); uerr != nil {
			s.logger.Error("failed to record generation failure",
				zap.Uint("generation_id", gen.ID), zap.Error(uerr))
		}
		return nil, err
	}
	gen.ProviderRequestID = result.RequestID

	if !result.Success {
		gen.Status = models.GenerationFailed
		gen.ErrorMessage = result.ErrorDetail
		if uerr := s.generations.Update(gen); uerr != nil {
			return nil, uerr
		}
		s.logger.Warn("generation failed at provider",
			zap.Uint("generation_id", gen.ID), zap.String("detail", result.ErrorDetail))
		return gen, nil
	}

	if _, _, err := s.ledger.ConfirmHold(hold.ID); err != nil {
		return nil, err
	}
	confirmed = true

	gen.Status = models.GenerationCompleted
	gen.ResultURL = result.ResultURL
	gen.ArchiveURL = s.archive(ctx, gen, result.ResultURL)
	if err := s.generations.Update(gen); err != nil {
		return nil, err
	}

	s.logger.Info("generation completed",
		zap.Uint("generation_id", gen.ID),
		zap.Uint("user_id", userID),
		zap.String("tool", req.Tool),
		zap.Int("credits", cfg.Credits))
	return gen, nil
}

func (s *GenerationService) Get(userID, id uint) (*models.Generation, error) {
	gen, err := s.generations.GetByID(id)
	if err != nil {
		return nil, err
	}
	if gen.UserID != userID {
		return nil, models.ErrNotFound
	}
	return gen, nil
}

func (s *GenerationService) History(userID uint) ([]models.Generation, error) {
	return s.generations.GetUserGenerations(userID)
}

// buildInput maps the request onto the provider payload. Only known option
// keys pass through.
func (s *GenerationService) buildInput(req models.CreateGenerationRequest, cfg pricing.ToolConfig) map[string]any {
	input := map[string]any{
		"prompt": req.Prompt,
	}
	for _, key := range []string{"negative_prompt", "seed", "image_url", "aspect_ratio", "resolution", "duration"} {
		if v, ok := req.Options[key]; ok {
			input[key] = v
		}
	}
	if cfg.HasSound {
		if v, ok := req.Options["enable_audio"]; ok {
			input["enable_audio"] = v
		}
	}
	return input
}

// archive copies the provider artifact into our own bucket. Provider URLs
// expire; the archive copy is the durable one. Best-effort: a failed copy
// never fails the generation.
func (s *GenerationService) archive(ctx context.Context, gen *models.Generation, sourceURL string) string {
	if s.archiver == nil || sourceURL == "" {
		return ""
	}

	ext := ".png"
	if gen.Kind == models.GenerationVideo {
		ext = ".mp4"
	}
	key := fmt.Sprintf("generations/%d/%d%s", gen.UserID, gen.ID, ext)

	url, err := s.archiver.ArchiveFromURL(ctx, key, sourceURL)
	if err != nil {
		s.logger.Warn("artifact archive failed",
			zap.Uint("generation_id", gen.ID), zap.Error(err))
		return ""
	}
	return url
}
