package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStep(t *testing.T) {
	assert.Equal(t, StepPhone, NextStep(TypeProvider, StepProfile))
	assert.Equal(t, StepServices, NextStep(TypeProvider, StepPhone))
	assert.Equal(t, StepLocation, NextStep(TypeProvider, StepServices))
	assert.Equal(t, StepComplete, NextStep(TypeProvider, StepLocation))
	assert.Equal(t, "", NextStep(TypeProvider, StepComplete))

	assert.Equal(t, StepComplete, NextStep(TypeSeeker, StepPhone))
	assert.Equal(t, "", NextStep(TypeSeeker, StepServices))
}

func TestSteps_UnknownTypeIsSeeker(t *testing.T) {
	assert.Equal(t, Steps(TypeSeeker), Steps("admin"))
}
