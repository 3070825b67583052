package static

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-cp/meridian/internal/providers/types"
)

type fakeProber struct {
	output string
	err    error
	calls  int
}

func (f *fakeProber) Execute(context.Context, string) (string, error) {
	f.calls++
	return f.output, f.err
}

func withFakeProber(t *testing.T, fake *fakeProber) {
	t.Helper()
	orig := newProber
	newProber = func(types.Credentials) (prober, error) { return fake, nil }
	t.Cleanup(func() { newProber = orig })
}

func TestValidate_Success(t *testing.T) {
	fake := &fakeProber{output: "meridian\n"}
	withFakeProber(t, fake)

	result, err := Validate(context.Background(), staticCreds())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "ops@10.1.2.3", result.Identity)
	assert.Equal(t, 1, fake.calls)
}

func TestValidate_MissingFieldsIsError(t *testing.T) {
	_, err := Validate(context.Background(), types.Credentials{Host: "10.1.2.3"})
	require.Error(t, err)
}

func TestValidate_AuthRejectionMapped(t *testing.T) {
	withFakeProber(t, &fakeProber{err: errors.New("ssh: unable to authenticate, attempted methods [publickey]")})

	result, err := Validate(context.Background(), staticCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "rejected the login credentials")
}

func TestValidate_UnreachableHost(t *testing.T) {
	withFakeProber(t, &fakeProber{err: errors.New("dial tcp 10.1.2.3:22: i/o timeout")})

	result, err := Validate(context.Background(), staticCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "unable to reach host 10.1.2.3")
}

func TestValidate_UnexpectedProbeOutput(t *testing.T) {
	withFakeProber(t, &fakeProber{output: "garbled"})

	result, err := Validate(context.Background(), staticCreds())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Message, "unexpected output")
}
