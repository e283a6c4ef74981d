package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"sentinela-gateway/internal/domain"
)

type setCall struct {
	key   string
	value string
	ttl   time.Duration
}

type fakeKV struct {
	mu sync.Mutex

	values map[string]string
	hashes map[string]map[string]string
	zsets  map[string]map[string]float64

	getErr  error
	setErr  error
	incrErr error
	hsetErr error
	zaddErr error

	sets  []setCall
	incrs []string
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		values: map[string]string{},
		hashes: map[string]map[string]string{},
		zsets:  map[string]map[string]float64{},
	}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) SetEX(_ context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, setCall{key: key, value: value, ttl: ttl})
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = value
	return nil
}

func (f *fakeKV) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrs = append(f.incrs, key)
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	n, _ := strconv.ParseInt(f.values[key], 10, 64)
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeKV) HSet(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hsetErr != nil {
		return f.hsetErr
	}
	f.hashes[key] = fields
	return nil
}

func (f *fakeKV) ZAdd(_ context.Context, key string, score float64, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zaddErr != nil {
		return f.zaddErr
	}
	if f.zsets[key] == nil {
		f.zsets[key] = map[string]float64{}
	}
	f.zsets[key][member] = score
	return nil
}

func (f *fakeKV) setsFor(key string) []setCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []setCall
	for _, c := range f.sets {
		if c.key == key {
			out = append(out, c)
		}
	}
	return out
}

type fakeAI struct {
	answer    string
	err       error
	calls     int
	lastInput domain.Prompt
	deadline  bool
}

func (f *fakeAI) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	f.calls++
	f.lastInput = p
	_, f.deadline = ctx.Deadline()
	return f.answer, f.err
}

type statusErr struct{ code int }

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) HTTPStatusCode() int { return e.code }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func expectCode(t *testing.T, err error, code ErrorCode) *Error {
	t.Helper()
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected *usecase.Error, got %T: %v", err, err)
	}
	if ue.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, ue.Code, ue)
	}
	return ue
}

func stubUUID(t *testing.T, id string) {
	t.Helper()
	orig := newUUID
	newUUID = func() string { return id }
	t.Cleanup(func() { newUUID = orig })
}
