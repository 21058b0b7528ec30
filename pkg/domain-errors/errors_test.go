package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"asamblea/pkg/platform/sentinel"
)

func TestHasCode(t *testing.T) {
	err := New(CodeAlreadyClaimed, "registry already claimed")
	assert.True(t, HasCode(err, CodeAlreadyClaimed))
	assert.False(t, HasCode(err, CodeBlockedVoter))
	assert.False(t, HasCode(errors.New("plain"), CodeAlreadyClaimed))
}

func TestWrapPreservesChain(t *testing.T) {
	err := Wrap(sentinel.ErrConflict, CodeConcurrentClaimConflict, "claim lost race")
	assert.True(t, errors.Is(err, sentinel.ErrConflict))
	assert.True(t, HasCode(err, CodeConcurrentClaimConflict))

	wrapped := fmt.Errorf("submit claim: %w", err)
	assert.True(t, HasCode(wrapped, CodeConcurrentClaimConflict))
	assert.Equal(t, CodeConcurrentClaimConflict, CodeOf(wrapped))
}

func TestCodeOfUncoded(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:              http.StatusBadRequest,
		CodeInvalidAnswerShape:      http.StatusBadRequest,
		CodeIncompleteAnswerSet:     http.StatusBadRequest,
		CodeUnauthorized:            http.StatusUnauthorized,
		CodeBlockedVoter:            http.StatusForbidden,
		CodeRegistrationClosed:      http.StatusForbidden,
		CodeDocumentNotAssociated:   http.StatusNotFound,
		CodeAlreadyClaimed:          http.StatusConflict,
		CodeConcurrentClaimConflict: http.StatusConflict,
		CodeIllegalTransition:       http.StatusConflict,
		CodeInternal:                http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
