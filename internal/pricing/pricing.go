// Package pricing holds the locked pricing catalogs. Prices are fixed in
// code: they cannot be changed from the admin surface or any API endpoint.
// Validate must pass before the process serves traffic.
package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vidora/vidora-backend/internal/models"
)

// Payment fees, captured onto every Payment row at creation.
var (
	CommissionRate = decimal.RequireFromString("0.03")
	TaxRate        = decimal.RequireFromString("0.04")
)

const Currency = "AZN"

// ToolConfig describes one generation tool: its credit cost and the
// provider model it maps to.
type ToolConfig struct {
	Credits  int    `json:"credits"`
	Model    string `json:"model"`
	Name     string `json:"name"`
	HasSound bool   `json:"has_sound,omitempty"`
}

// VideoTools is the locked catalog for 5-second video generation.
var VideoTools = map[string]ToolConfig{
	"pika":     {Credits: 52, Model: "fal-ai/pika/v2.2/text-to-video", Name: "Pika Labs"},
	"seedance": {Credits: 39, Model: "fal-ai/bytedance/seedance/v1/pro/fast/text-to-video", Name: "Seedance", HasSound: true},
	"wan":      {Credits: 24, Model: "wan/v2.6/text-to-video", Name: "Wan"},
	"luma":     {Credits: 32, Model: "fal-ai/luma-photon/text-to-video", Name: "Luma AI", HasSound: true},
	"kling":    {Credits: 55, Model: "fal-ai/kling-video/v2.5-turbo/pro/text-to-video", Name: "Kling AI", HasSound: true},
	"veo":      {Credits: 238, Model: "fal-ai/veo3", Name: "Veo", HasSound: true},
	"sora":     {Credits: 79, Model: "fal-ai/sora-2/text-to-video", Name: "Sora"},
}

// ImageTools is the locked catalog for image generation.
var ImageTools = map[string]ToolConfig{
	"gpt-image":   {Credits: 16, Model: "fal-ai/gpt-image-1.5", Name: "GPT Image"},
	"nano-banana": {Credits: 47, Model: "fal-ai/nano-banana-pro", Name: "Nano Banana"},
	"seedream":    {Credits: 6, Model: "fal-ai/bytedance/seedream/v4.5/text-to-image", Name: "Seedream"},
	"flux":        {Credits: 6, Model: "fal-ai/flux-2-pro", Name: "Flux"},
	"z-image":     {Credits: 2, Model: "fal-ai/z-image/turbo/lora", Name: "Z-Image"},
	"qwen":        {Credits: 6, Model: "fal-ai/qwen-image-2512", Name: "Qwen"},
}

// lockedCredits is the authoritative copy of per-tool credit costs. The
// tool catalogs above must agree with it; Validate cross-checks the two so
// a price edited in one place and not the other is caught at startup.
var lockedCredits = map[models.GenerationKind]map[string]int{
	models.GenerationVideo: {
		"pika":     52,
		"seedance": 39,
		"wan":      24,
		"luma":     32,
		"kling":    55,
		"veo":      238,
		"sora":     79,
	},
	models.GenerationImage: {
		"gpt-image":   16,
		"nano-banana": 47,
		"seedream":    6,
		"flux":        6,
		"z-image":     2,
		"qwen":        6,
	},
}

// Plan describes a monthly subscription package.
type Plan struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Currency   string          `json:"currency"`
	Credits    int             `json:"credits"`
	PeriodDays int             `json:"period_days"`
}

var Plans = map[string]Plan{
	"demo":    {Name: "Demo", Price: decimal.RequireFromString("0.10"), Currency: Currency, Credits: 500, PeriodDays: 7},
	"starter": {Name: "Starter", Price: decimal.NewFromInt(19), Currency: Currency, Credits: 750, PeriodDays: 30},
	"pro":     {Name: "Pro", Price: decimal.NewFromInt(39), Currency: Currency, Credits: 1800, PeriodDays: 30},
	"agency":  {Name: "Agency", Price: decimal.NewFromInt(79), Currency: Currency, Credits: 4000, PeriodDays: 30},
}

// TopupPackage describes a one-off credit package. Top-up credits are added
// to the balance, not reset like a subscription grant.
type TopupPackage struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Credits  int             `json:"credits"`
	Popular  bool            `json:"popular,omitempty"`
}

var TopupPackages = map[string]TopupPackage{
	"small":  {Name: "Top-up S", Price: decimal.NewFromInt(10), Currency: Currency, Credits: 450},
	"medium": {Name: "Top-up M", Price: decimal.NewFromInt(25), Currency: Currency, Credits: 1150, Popular: true},
	"large":  {Name: "Top-up L", Price: decimal.NewFromInt(50), Currency: Currency, Credits: 2200},
}

// Tool returns the config for a tool of the given kind, or false when the
// tool is unknown.
func Tool(kind models.GenerationKind, tool string) (ToolConfig, bool) {
	switch kind {
	case models.GenerationVideo:
		cfg, ok := VideoTools[tool]
		return cfg, ok
	case models.GenerationImage:
		cfg, ok := ImageTools[tool]
		return cfg, ok
	}
	return ToolConfig{}, false
}

// Validate cross-checks the tool catalogs against the locked credit table
// and sanity-checks plans and packages. Callers must fail fast on error.
func Validate() error {
	catalogs := map[models.GenerationKind]map[string]ToolConfig{
		models.GenerationVideo: VideoTools,
		models.GenerationImage: ImageTools,
	}

	for kind, locked := range lockedCredits {
		catalog := catalogs[kind]
		if len(catalog) != len(locked) {
			return fmt.Errorf("pricing: %s catalog has %d tools, locked table has %d", kind, len(catalog), len(locked))
		}
		for _, tool := range sortedKeys(locked) {
			cfg, ok := catalog[tool]
			if !ok {
				return fmt.Errorf("pricing: %s tool %q in locked table but missing from catalog", kind, tool)
			}
			if cfg.Credits != locked[tool] {
				return fmt.Errorf("pricing: %s tool %q costs %d in catalog but %d in locked table", kind, tool, cfg.Credits, locked[tool])
			}
			if cfg.Model == "" {
				return fmt.Errorf("pricing: %s tool %q has no model id", kind, tool)
			}
		}
	}

	for id, plan := range Plans {
		if plan.Credits <= 0 || plan.PeriodDays <= 0 || !plan.Price.IsPositive() {
			return fmt.Errorf("pricing: plan %q is malformed", id)
		}
	}
	for id, pkg := range TopupPackages {
		if pkg.Credits <= 0 || !pkg.Price.IsPositive() {
			return fmt.Errorf("pricing: top-up package %q is malformed", id)
		}
	}
	if !CommissionRate.IsPositive() || !TaxRate.IsPositive() {
		return fmt.Errorf("pricing: commission and tax rates must be positive")
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
