package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/prospectpipe/outreach-backend/internal/errors"
	"github.com/prospectpipe/outreach-backend/internal/model"
)

func TestShouldRequeue(t *testing.T) {
	providerErr := errors.New("trunk unavailable")

	// A fresh provider failure earns one requeue pass.
	assert.True(t, shouldRequeue(providerErr, false))

	// A redelivered job failing again is dropped, not looped.
	assert.False(t, shouldRequeue(providerErr, true))

	// Business-rule skips never requeue, fresh or not.
	skip := apperrors.NewSkip(model.ChannelVoice, "prospect in call cooldown window")
	assert.False(t, shouldRequeue(skip, false))
	assert.False(t, shouldRequeue(skip, true))

	// Wrapped skips still count as skips.
	wrapped := errors.Join(errors.New("attempt failed"), skip)
	assert.False(t, shouldRequeue(wrapped, false))
}
