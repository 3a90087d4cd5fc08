package apperr

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfUnwrapsChain(t *testing.T) {
	err := fmt.Errorf("complete sprint: %w", InvalidState("sprint %d is %s", 3, "planning"))

	assert.Equal(t, CodeInvalidState, CodeOf(err))
	assert.True(t, Is(err, CodeInvalidState))
	assert.False(t, Is(err, CodeConflict))
	assert.Equal(t, "invalid_state: sprint 3 is planning", InvalidState("sprint %d is %s", 3, "planning").Error())
}

func TestCodeOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(sql.ErrConnDone))
	assert.Nil(t, FieldsOf(sql.ErrConnDone))
}

func TestInvalidCarriesFieldDetail(t *testing.T) {
	err := Invalid("items[2].status_id", "status %d does not belong to project %d", 9, 1)

	assert.Equal(t, CodeInvalid, err.Code)
	assert.Equal(t, map[string]string{
		"items[2].status_id": "status 9 does not belong to project 1",
	}, FieldsOf(fmt.Errorf("reorder: %w", err)))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(sql.ErrTxDone, CodeInternal, "commit")

	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Contains(t, err.Error(), "commit")
}
