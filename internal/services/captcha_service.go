package services

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CaptchaService issues the arithmetic question shown on the contact form.
type CaptchaService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCaptchaService() *CaptchaService {
	return &CaptchaService{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateMathProblem returns a display string (e.g. "3 + 5") and the answer.
// Callers keep the answer in the session and check it with Verify.
func (s *CaptchaService) GenerateMathProblem() (string, int) {
	s.mu.Lock()
	a := s.rnd.Intn(10)
	b := s.rnd.Intn(10)
	op := s.rnd.Intn(2)
	s.mu.Unlock()

	if op == 0 {
		return fmt.Sprintf("%d + %d", a, b), a + b
	}
	if a < b {
		a, b = b, a
	}
	return fmt.Sprintf("%d - %d", a, b), a - b
}

// Verify compares the submitted answer with the stored one.
func (s *CaptchaService) Verify(expected interface{}, submitted string) bool {
	want, ok := expected.(int)
	if !ok {
		return false
	}
	got, err := strconv.Atoi(strings.TrimSpace(submitted))
	return err == nil && got == want
}
