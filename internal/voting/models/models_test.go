package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "asamblea/pkg/domain-errors"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusCreated, StatusLive))
	assert.True(t, CanTransition(StatusLive, StatusFinished))
	assert.True(t, CanTransition(StatusLive, StatusCanceled))
	assert.True(t, CanTransition(StatusFinished, StatusLive), "retake")

	assert.False(t, CanTransition(StatusCreated, StatusFinished))
	assert.False(t, CanTransition(StatusCanceled, StatusLive), "canceled is terminal")
	assert.False(t, CanTransition(StatusFinished, StatusCanceled))
	assert.False(t, CanTransition(StatusCreated, StatusCanceled))
}

func TestValidateAnswer(t *testing.T) {
	unique := Question{Type: TypeUnique, Options: []string{"Sí", "No"}}
	multiple := Question{Type: TypeMultiple, Options: []string{"a", "b", "c"}}
	open := Question{Type: TypeOpen}

	t.Run("unique accepts a listed option", func(t *testing.T) {
		assert.NoError(t, unique.ValidateAnswer(Answer{Option: "Sí"}))
	})

	t.Run("unique rejects unlisted option", func(t *testing.T) {
		err := unique.ValidateAnswer(Answer{Option: "Tal vez"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})

	t.Run("unique rejects multiple shape", func(t *testing.T) {
		err := unique.ValidateAnswer(Answer{Options: []string{"Sí"}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})

	t.Run("multiple accepts a subset", func(t *testing.T) {
		assert.NoError(t, multiple.ValidateAnswer(Answer{Options: []string{"a", "c"}}))
	})

	t.Run("multiple rejects empty set", func(t *testing.T) {
		err := multiple.ValidateAnswer(Answer{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})

	t.Run("multiple rejects options outside the question", func(t *testing.T) {
		err := multiple.ValidateAnswer(Answer{Options: []string{"a", "z"}})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})

	t.Run("open requires non-empty text", func(t *testing.T) {
		assert.NoError(t, open.ValidateAnswer(Answer{Text: "de acuerdo"}))
		err := open.ValidateAnswer(Answer{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})

	t.Run("open rejects option shape", func(t *testing.T) {
		err := open.ValidateAnswer(Answer{Text: "x", Option: "Sí"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAnswerShape))
	})
}

func TestAnswerMatches(t *testing.T) {
	assert.True(t, Answer{Option: "Sí"}.Matches(TypeUnique, "Sí"))
	assert.False(t, Answer{Option: "No"}.Matches(TypeYesNo, "Sí"))
	assert.True(t, Answer{Options: []string{"a", "b"}}.Matches(TypeMultiple, "b"))
	assert.False(t, Answer{Options: []string{"a"}}.Matches(TypeMultiple, "b"))
	assert.False(t, Answer{Text: "libre"}.Matches(TypeOpen, "libre"), "open answers never match options")
}
