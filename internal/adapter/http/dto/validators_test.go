package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderRefPattern(t *testing.T) {
	valid := []string{"M2511386", "M2500000", "M2599999"}
	for _, ref := range valid {
		assert.True(t, orderNumberRe.MatchString(ref), "expected %s to be valid", ref)
	}

	invalid := []string{
		"",
		"M251138",    // too short
		"M25113866",  // too long
		"M2411386",   // wrong year prefix
		"X2511386",   // wrong letter
		"m2511386",   // lowercase
		"M25 11386",  // space
		"M25113a6",   // non-digit
		" M2511386",  // leading space
	}
	for _, ref := range invalid {
		assert.False(t, orderNumberRe.MatchString(ref), "expected %s to be invalid", ref)
	}
}

func TestSafeIDPattern(t *testing.T) {
	assert.True(t, safeStringRe.MatchString("fin.huda"))
	assert.True(t, safeStringRe.MatchString("courier-7_a"))
	assert.False(t, safeStringRe.MatchString("user name"))
	assert.False(t, safeStringRe.MatchString("user<script>"))
}

func TestSanitizeStruct(t *testing.T) {
	notes := "  <b>fragile</b>  "
	type payload struct {
		Name  string
		Notes *string
	}
	p := &payload{Name: "  ali  ", Notes: &notes}

	SanitizeStruct(p)

	assert.Equal(t, "ali", p.Name)
	assert.Equal(t, "&lt;b&gt;fragile&lt;/b&gt;", *p.Notes)
}

func TestSanitizeStruct_NonStruct(t *testing.T) {
	// Must not panic on non-pointer or non-struct input.
	SanitizeStruct("plain string")
	SanitizeStruct(nil)
	n := 42
	SanitizeStruct(&n)
}
