package user

import (
	"errors"
	"time"

	"gigmarket/internal/subscription"

	"github.com/google/uuid"
)

const (
	TypeProvider = "provider"
	TypeSeeker   = "seeker"
)

const (
	StepProfile  = "profile"
	StepPhone    = "phone"
	StepServices = "services"
	StepLocation = "location"
	StepComplete = "complete"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrInvalidStep      = errors.New("onboarding step is out of order")
	ErrPhoneNotVerified = errors.New("phone number must be verified first")
)

type User struct {
	ID             uuid.UUID                 `json:"id"`
	Email          string                    `json:"email"`
	FullName       string                    `json:"full_name"`
	Phone          string                    `json:"phone"`
	UserType       string                    `json:"user_type"`
	Subscription   subscription.Subscription `json:"subscription"`
	OnboardingStep string                    `json:"onboarding_step"`
	PhoneVerified  bool                      `json:"phone_verified"`
	CreatedAt      time.Time                 `json:"created_at"`
}

var onboardingFlows = map[string][]string{
	TypeProvider: {StepProfile, StepPhone, StepServices, StepLocation, StepComplete},
	TypeSeeker:   {StepProfile, StepPhone, StepComplete},
}

// Steps returns the onboarding sequence for a user type.
func Steps(userType string) []string {
	if steps, ok := onboardingFlows[userType]; ok {
		return steps
	}
	return onboardingFlows[TypeSeeker]
}

// NextStep returns the step after current, or "" when onboarding is over or
// current is not part of the flow.
func NextStep(userType, current string) string {
	steps := Steps(userType)
	for i, s := range steps {
		if s == current && i+1 < len(steps) {
			return steps[i+1]
		}
	}
	return ""
}
