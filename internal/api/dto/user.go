package dto

type OnboardingRequest struct {
	Step string `json:"step" validate:"required,oneof=profile phone services location complete"`
}

type UploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required,oneof=image/jpeg image/png image/webp"`
}
