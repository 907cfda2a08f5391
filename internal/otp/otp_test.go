package otp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/identity-service/internal/models"
	"github.com/clinicore/identity-service/internal/storage"
)

type fakeDirectory struct {
	known map[string]bool
}

func (d *fakeDirectory) FindUserByMobile(_ context.Context, mobile string) (models.User, error) {
	if d.known[mobile] {
		return models.User{ID: "user_1", MobileNumber: mobile}, nil
	}
	return models.User{}, storage.ErrNotFound
}

type fakeNotifier struct {
	mu   sync.Mutex
	sms  []string
	fail bool
}

func (n *fakeNotifier) SendEmail(_, _, _ string) error { return nil }

func (n *fakeNotifier) SendSMS(_, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("gateway down")
	}
	n.sms = append(n.sms, body)
	return nil
}

func (n *fakeNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sms)
	body := n.sms[len(n.sms)-1]
	code := strings.TrimPrefix(body, "Your verification code is: ")
	require.Len(t, code, 6)
	return code
}

func newTestEngine(t *testing.T) (*Engine, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	dir := &fakeDirectory{known: map[string]bool{"9990001111": true}}
	e := NewEngine(dir, notifier, zerolog.Nop(), DefaultTTL)
	e.dispatch = func(fn func()) { fn() }
	return e, notifier
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	e, notifier := newTestEngine(t)

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	code := notifier.lastCode(t)

	require.True(t, e.Validate("9990001111", code, PurposeReset))

	// A consumed code cannot be replayed.
	require.False(t, e.Validate("9990001111", code, PurposeReset))
}

func TestIssueRequiresKnownUserForAccountBoundPurposes(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.Issue(context.Background(), "0000000000", PurposeReset)
	require.ErrorIs(t, err, storage.ErrNotFound)

	err = e.Issue(context.Background(), "0000000000", PurposeLogin)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Signup has no account yet, so no lookup applies.
	require.NoError(t, e.Issue(context.Background(), "0000000000", PurposeSignup))
}

func TestValidateWrongPurposeDoesNotConsume(t *testing.T) {
	e, notifier := newTestEngine(t)

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	code := notifier.lastCode(t)

	require.False(t, e.Validate("9990001111", code, PurposeLogin))

	// The legitimate purpose still succeeds afterwards.
	require.True(t, e.Validate("9990001111", code, PurposeReset))
}

func TestValidateWrongCodeDoesNotConsume(t *testing.T) {
	e, notifier := newTestEngine(t)

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	code := notifier.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.False(t, e.Validate("9990001111", wrong, PurposeReset))
	require.True(t, e.Validate("9990001111", code, PurposeReset))
}

func TestValidateExpiredCodeIsRemoved(t *testing.T) {
	e, notifier := newTestEngine(t)

	now := time.Now()
	e.now = func() time.Time { return now }
	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	code := notifier.lastCode(t)

	e.now = func() time.Time { return now.Add(DefaultTTL + time.Second) }
	require.False(t, e.Validate("9990001111", code, PurposeReset))

	// Expiry deleted the entry: rewinding the clock cannot revive it.
	e.now = func() time.Time { return now }
	require.False(t, e.Validate("9990001111", code, PurposeReset))
}

func TestIssueOverwritesPriorCode(t *testing.T) {
	e, notifier := newTestEngine(t)

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	first := notifier.lastCode(t)

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	second := notifier.lastCode(t)

	if first != second {
		require.False(t, e.Validate("9990001111", first, PurposeReset))
	}
	require.True(t, e.Validate("9990001111", second, PurposeReset))
}

func TestIssueSurvivesSMSFailure(t *testing.T) {
	e, notifier := newTestEngine(t)
	notifier.fail = true

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
}

func TestConcurrentValidateSingleWinner(t *testing.T) {
	e, notifier := newTestEngine(t)

	require.NoError(t, e.Issue(context.Background(), "9990001111", PurposeReset))
	code := notifier.lastCode(t)

	const attempts = 16
	results := make(chan bool, attempts)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer done.Done()
			start.Wait()
			results <- e.Validate("9990001111", code, PurposeReset)
		}()
	}
	start.Done()
	done.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent validation may consume the code")
}
