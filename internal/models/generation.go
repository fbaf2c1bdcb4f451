package models

import "time"

// GenerationKind tells which pricing table and tool catalog applies.
type GenerationKind string

const (
	GenerationVideo GenerationKind = "video"
	GenerationImage GenerationKind = "image"
)

func (k GenerationKind) Valid() bool {
	return k == GenerationVideo || k == GenerationImage
}

type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Generation is one AI generation job (video or image).
type Generation struct {
	ID                uint             `json:"id" gorm:"primaryKey"`
	UserID            uint             `json:"user_id" gorm:"not null;index"`
	Kind              GenerationKind   `json:"kind" gorm:"not null"`
	Tool              string           `json:"tool" gorm:"not null"`
	ModelID           string           `json:"model_id" gorm:"not null"`
	Prompt            string           `json:"prompt" gorm:"not null"`
	CreditsUsed       int              `json:"credits_used" gorm:"not null"`
	Status            GenerationStatus `json:"status" gorm:"not null;default:'pending';index"`
	ResultURL         string           `json:"result_url"`
	ArchiveURL        string           `json:"archive_url"`
	ProviderRequestID string           `json:"provider_request_id"`
	ErrorMessage      string           `json:"error_message"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}
