package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	"sentinela-gateway/internal/domain"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut    *ssm.GetParameterOutput
	getErr    error
	lastInput *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastInput = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func paramOut(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: strPtr(v)}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: paramOut(`{"token":"abc"}`)}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), " /sentinela/gemini ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"abc"}`, v)
	require.Equal(t, "/sentinela/gemini", *api.lastInput.Name)
	require.True(t, *api.lastInput.WithDecryption)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: &types.ParameterNotFound{Message: strPtr("nope")}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetParameter_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_Guards(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")

	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")

	_, err = New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

type fakeGetter struct {
	vals  []string
	errs  []error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	var v string
	var err error
	if i < len(f.vals) {
		v = f.vals[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return v, err
}

func TestNewSecretKey_Validation(t *testing.T) {
	_, err := NewSecretKey(nil, "p")
	require.Error(t, err)
	_, err = NewSecretKey(&fakeGetter{}, " ")
	require.Error(t, err)
}

func TestSecretKey_CachesSuccess(t *testing.T) {
	g := &fakeGetter{vals: []string{`{"token":"key-1"}`, `{"token":"key-2"}`}}
	s, err := NewSecretKey(g, "/sentinela/gemini")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		k, err := s.APIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "key-1", k)
	}
	require.Equal(t, 1, g.calls)
}

func TestSecretKey_RetriesAfterFailure(t *testing.T) {
	g := &fakeGetter{
		vals: []string{"", `{"token":"key-1"}`},
		errs: []error{errors.New("throttled"), nil},
	}
	s, err := NewSecretKey(g, "p")
	require.NoError(t, err)

	_, err = s.APIKey(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrMissingCredential)

	k, err := s.APIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "key-1", k)
}

func TestSecretKey_MissingCredential(t *testing.T) {
	cases := map[string]*fakeGetter{
		"not found":   {errs: []error{ErrNotFound}},
		"empty token": {vals: []string{`{"token":"  "}`}},
		"no token":    {vals: []string{`{"other":"x"}`}},
	}
	for name, g := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := NewSecretKey(g, "p")
			require.NoError(t, err)
			_, err = s.APIKey(context.Background())
			require.ErrorIs(t, err, domain.ErrMissingCredential)
		})
	}
}

func TestSecretKey_MalformedJSON(t *testing.T) {
	s, err := NewSecretKey(&fakeGetter{vals: []string{`{"broken`}}, "p")
	require.NoError(t, err)
	_, err = s.APIKey(context.Background())
	require.ErrorContains(t, err, "decode api key parameter")
}
