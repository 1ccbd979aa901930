package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "Svc.Op: failed: boom", E(CodeInternal, "Svc.Op", "failed", cause).Error())
	assert.Equal(t, "Svc.Op: failed", E(CodeInternal, "Svc.Op", "failed", nil).Error())
	assert.Equal(t, "boom", E(CodeInternal, "", "", cause).Error())
	assert.Equal(t, "error", E(CodeInternal, "", "", nil).Error())
}

func TestHTTPStatus(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", E(CodeConflict, "X", "dup", nil))

	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(E(CodeUpstream, "X", "llm", nil)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("repo: %w", ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	assert.True(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(wrapped, CodeNotFound))
}
