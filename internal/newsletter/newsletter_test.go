package newsletter

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain", input: "ama@example.com", want: "ama@example.com"},
		{name: "trims and lowercases", input: "  Kofi.Mensah@Example.COM \n", want: "kofi.mensah@example.com"},
		{name: "plus tag", input: "ama+news@example.com.gh", want: "ama+news@example.com.gh"},
		{name: "empty", input: "   ", wantErr: true},
		{name: "missing at", input: "ama.example.com", wantErr: true},
		{name: "missing domain dot", input: "ama@localhost", wantErr: true},
		{name: "display name", input: "Ama <ama@example.com>", wantErr: true},
		{name: "two addresses", input: "a@example.com, b@example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidEmail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type failingRepo struct{ err error }

func (f failingRepo) Add(context.Context, string) error { return f.err }

func (f failingRepo) AddBatch(context.Context, []string) (int64, error) { return 0, f.err }

func TestService_Subscribe(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	svc := NewService(repo)

	got, err := svc.Subscribe(ctx, " Ama@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ama@example.com", got)

	_, err = svc.Subscribe(ctx, "AMA@example.com")
	require.ErrorIs(t, err, ErrAlreadySubscribed)

	_, err = svc.Subscribe(ctx, "not-an-email")
	require.ErrorIs(t, err, ErrInvalidEmail)

	assert.Equal(t, 1, repo.Len())
}

func TestService_SubscribeRepositoryError(t *testing.T) {
	svc := NewService(failingRepo{err: errors.New("connection reset")})

	_, err := svc.Subscribe(context.Background(), "ama@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadySubscribed)
	assert.Contains(t, err.Error(), "add subscriber")
}
