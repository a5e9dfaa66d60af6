package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type student struct {
	Name  string `json:"name" validate:"required"`
	RegNo string `json:"regNo" validate:"required,max=4"`
}

func TestStruct(t *testing.T) {
	assert.Nil(t, Struct(student{Name: "Ana", RegNo: "A1"}))

	fields := Struct(student{RegNo: "TOO-LONG"})
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "regNo")
	assert.Contains(t, fields["name"], "required")
}

func TestTranslateErrorsPassthrough(t *testing.T) {
	fields := TranslateErrors(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"detail": "unexpected EOF"}, fields)
}
