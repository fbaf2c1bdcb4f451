package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidora/vidora-backend/internal/models"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate())
}

func TestToolLookup(t *testing.T) {
	cfg, ok := Tool(models.GenerationVideo, "pika")
	require.True(t, ok)
	assert.Equal(t, 52, cfg.Credits)
	assert.Equal(t, "fal-ai/pika/v2.2/text-to-video", cfg.Model)

	cfg, ok = Tool(models.GenerationImage, "z-image")
	require.True(t, ok)
	assert.Equal(t, 2, cfg.Credits)

	// Tools are scoped to their kind.
	_, ok = Tool(models.GenerationImage, "pika")
	assert.False(t, ok)
	_, ok = Tool(models.GenerationVideo, "flux")
	assert.False(t, ok)
	_, ok = Tool(models.GenerationKind("audio"), "pika")
	assert.False(t, ok)
}

func TestCatalogDivergenceFailsValidation(t *testing.T) {
	orig := ImageTools["flux"]
	tampered := orig
	tampered.Credits = orig.Credits + 1
	ImageTools["flux"] = tampered
	defer func() { ImageTools["flux"] = orig }()

	assert.Error(t, Validate())
}

func TestPlanAndPackageShape(t *testing.T) {
	for id, plan := range Plans {
		assert.Positive(t, plan.Credits, "plan %s", id)
		assert.Positive(t, plan.PeriodDays, "plan %s", id)
		assert.True(t, plan.Price.IsPositive(), "plan %s", id)
		assert.Equal(t, Currency, plan.Currency, "plan %s", id)
	}
	for id, pkg := range TopupPackages {
		assert.Positive(t, pkg.Credits, "package %s", id)
		assert.True(t, pkg.Price.IsPositive(), "package %s", id)
	}
}
