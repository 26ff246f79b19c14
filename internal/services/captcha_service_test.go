package services

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMathProblemAnswers(t *testing.T) {
	s := NewCaptchaService()
	for i := 0; i < 50; i++ {
		question, answer := s.GenerateMathProblem()

		parts := strings.Fields(question)
		require.Len(t, parts, 3)
		a, _ := strconv.Atoi(parts[0])
		b, _ := strconv.Atoi(parts[2])
		if parts[1] == "+" {
			assert.Equal(t, a+b, answer)
		} else {
			assert.Equal(t, a-b, answer)
			assert.GreaterOrEqual(t, answer, 0)
		}
	}
}

func TestCaptchaVerify(t *testing.T) {
	s := NewCaptchaService()
	assert.True(t, s.Verify(7, " 7 "))
	assert.False(t, s.Verify(7, "8"))
	assert.False(t, s.Verify(nil, "7"))
	assert.False(t, s.Verify(7, "seven"))
}
