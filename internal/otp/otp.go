// Package otp holds short-lived one-time passcodes keyed by mobile number.
// Codes live only in process memory for their validity window; a successful
// validation consumes the code exactly once, even under concurrent attempts.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/identity-service/internal/models"
	"github.com/clinicore/identity-service/internal/notify"
)

// Purpose tags accepted by the engine. Account-bound purposes require the
// mobile number to map to a known user before a code is issued.
const (
	PurposeLogin  = "login"
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

// DefaultTTL is the validity window of an issued code.
const DefaultTTL = 5 * time.Minute

// UserDirectory is the read-only user lookup the engine needs.
type UserDirectory interface {
	FindUserByMobile(ctx context.Context, mobile string) (models.User, error)
}

type entry struct {
	code      string
	expiresAt time.Time
	purpose   string
}

// Engine generates and validates one-time passcodes. One live code exists
// per mobile number; issuing a new code overwrites any prior one.
type Engine struct {
	users    UserDirectory
	notifier notify.Notifier
	logger   zerolog.Logger
	ttl      time.Duration

	now      func() time.Time
	dispatch func(func())

	mu    sync.Mutex
	codes map[string]entry
}

// NewEngine creates an Engine with the given dependencies and code lifetime.
// A non-positive ttl falls back to DefaultTTL.
func NewEngine(users UserDirectory, notifier notify.Notifier, logger zerolog.Logger, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Engine{
		users:    users,
		notifier: notifier,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		dispatch: func(fn func()) { go fn() },
		codes:    make(map[string]entry),
	}
}

// Issue generates a 6-digit code for the mobile number, stores it with the
// purpose tag and expiry, and dispatches it by SMS. For the login and reset
// purposes the mobile number must belong to a known user. Delivery failure
// does not fail issuance.
func (e *Engine) Issue(ctx context.Context, mobile, purpose string) error {
	if purpose == PurposeLogin || purpose == PurposeReset {
		if _, err := e.users.FindUserByMobile(ctx, mobile); err != nil {
			return err
		}
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}

	e.mu.Lock()
	e.codes[mobile] = entry{
		code:      code,
		expiresAt: e.now().Add(e.ttl),
		purpose:   purpose,
	}
	e.mu.Unlock()

	e.dispatch(func() {
		if err := e.notifier.SendSMS(mobile, "Your verification code is: "+code); err != nil {
			e.logger.Warn().Err(err).Str("mobile", mobile).Msg("otp sms dispatch failed")
		}
	})

	return nil
}

// Validate reports whether the code matches the live entry for the mobile
// number and purpose. A match consumes the entry. A mismatched purpose or
// code leaves the entry in place, so probing one purpose cannot burn the
// code issued for another. Expired entries are removed on detection.
func (e *Engine) Validate(mobile, code, purpose string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := e.codes[mobile]
	if !ok {
		return false
	}
	if e.now().After(ent.expiresAt) {
		delete(e.codes, mobile)
		return false
	}
	if ent.purpose != purpose {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(ent.code), []byte(code)) != 1 {
		return false
	}

	delete(e.codes, mobile)
	return true
}

// generateCode draws a uniformly random 6-digit code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
