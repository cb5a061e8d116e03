package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset by peer")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error", cause, KindUpstream},
		{"conflict", New(KindConflict, "donation is not available"), KindConflict},
		{"wrapped with fmt", fmt.Errorf("assign: %w", New(KindNotFound, "donation not found")), KindNotFound},
		{"upstream", Upstream("assign", cause), KindUpstream},
		{"deadline", context.DeadlineExceeded, KindUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Upstream("confirm pickup", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "confirm pickup: storage failure: boom", err.Error())
	assert.True(t, Is(err, KindUpstream))
	assert.False(t, Is(err, KindConflict))
}

func TestSentinelIdentity(t *testing.T) {
	sentinel := New(KindInvalidInput, "invalid confirmation code")
	wrapped := fmt.Errorf("confirm: %w", sentinel)

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, New(KindInvalidInput, "invalid confirmation code"))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "donation not found", MessageOf(New(KindNotFound, "donation not found")))
	assert.Equal(t, "internal error", MessageOf(errors.New("raw")))
	assert.Equal(t, "bad 7", MessageOf(Newf(KindInvalidInput, "bad %d", 7)))
	assert.Equal(t, "op: msg", (&Error{Kind: KindConflict, Op: "op", Message: "msg"}).Error())
}
