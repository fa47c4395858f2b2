package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "engine: stack underflow on return", (&StackUnderflowError{}).Error())
	assert.Equal(t, "engine: invalid key 0x1f", (&InvalidKeyError{Key: 0x1F}).Error())
	assert.Equal(t, "engine: no input backend attached", (&MissingInputError{}).Error())
}

func TestWaitForKeyWithNoInputReturnsMissingInputError(t *testing.T) {
	e := newTestEngine(t, nil)
	loadProgram(t, e, []byte{0xF0, 0x0A})

	err := e.Step()

	var missing *MissingInputError
	assert.ErrorAs(t, err, &missing)
}
