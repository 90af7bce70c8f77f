package exam

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	CodeLength   = 8
	codeAttempts = 5
)

// NewCode returns a random exam access code.
func NewCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// CreateWithCode assigns a fresh code to e and stores it, retrying on collision.
func CreateWithCode(ctx context.Context, s Store, e Exam, gen func() (string, error)) (Exam, error) {
	if gen == nil {
		gen = NewCode
	}
	var lastErr error
	for i := 0; i < codeAttempts; i++ {
		code, err := gen()
		if err != nil {
			return Exam{}, err
		}
		e.Code = code
		created, err := s.CreateExam(ctx, e)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrCodeTaken) {
			return Exam{}, err
		}
		lastErr = err
	}
	return Exam{}, lastErr
}
