package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("vote: %w", AlreadyDone("already voted"))
	assert.True(t, errors.Is(err, ErrAlreadyDone))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "vote: already voted", err.Error())
}

func TestPersistenceKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("save reaction", cause)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "save reaction failed", Message(err))
	assert.Nil(t, Persistence("noop", nil))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "post not found", Message(NotFound("post")))
	assert.Equal(t, "poll needs at least 2 options", Message(Validation("poll needs at least %d options", 2)))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Equal(t, "", Message(nil))
}
