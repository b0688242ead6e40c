package featureflags_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/featureflags"
)

func newService(repo featureflags.Repository) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: repo,
		Logger:     zerolog.Nop(),
		CacheTTL:   1 * time.Minute,
	})
}

func TestService_Defaults(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	if service.ExternalSharesDisabled(ctx) {
		t.Error("expected external shares enabled by default")
	}
	if !service.RequireMalwareScan(ctx) {
		t.Error("expected malware scan required by default")
	}
	if service.AutoClassificationDisabled(ctx) {
		t.Error("expected auto-classification enabled by default")
	}
}

func TestService_SetFlag(t *testing.T) {
	service := newService(featureflags.NewInMemoryRepository())
	ctx := context.Background()

	err := service.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagDisableExternalShares,
		Value: true,
	})
	if err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	if !service.ExternalSharesDisabled(ctx) {
		t.Error("expected external shares disabled after update")
	}
}

func TestService_CacheFallsBackOnStoreFailure(t *testing.T) {
	repo := &failingRepository{}
	service := newService(repo)
	ctx := context.Background()

	// The store fails; defaults apply.
	flag := service.GetFlag(ctx, featureflags.FlagRequireMalwareScan)
	if flag == nil {
		t.Fatal("expected default flag")
	}
	if !flag.BoolValue(false) {
		t.Error("expected require_malware_scan default true")
	}
}

func TestService_GetAllFlagsMergesStoreOverDefaults(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo)
	ctx := context.Background()

	if err := repo.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagDisableAutoClassification,
		Value: true,
	}); err != nil {
		t.Fatalf("failed to seed flag: %v", err)
	}

	flags := service.GetAllFlags(ctx)
	if len(flags) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(flags))
	}
	if !flags[featureflags.FlagDisableAutoClassification].BoolValue(false) {
		t.Error("expected store value to override default")
	}
	if flags[featureflags.FlagDisableExternalShares].BoolValue(true) {
		t.Error("expected default false for disable_external_shares")
	}
}

func TestService_InvalidateCache(t *testing.T) {
	repo := featureflags.NewInMemoryRepository()
	service := newService(repo)
	ctx := context.Background()

	if err := service.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagDisableExternalShares,
		Value: true,
	}); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	// Change the store behind the cache; the cached value wins until
	// invalidation.
	if err := repo.SetFlag(ctx, &featureflags.Flag{
		Key:   featureflags.FlagDisableExternalShares,
		Value: false,
	}); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	if !service.ExternalSharesDisabled(ctx) {
		t.Error("expected cached value before invalidation")
	}

	service.InvalidateCache()
	if service.ExternalSharesDisabled(ctx) {
		t.Error("expected store value after invalidation")
	}
}

// failingRepository simulates an unreachable flag store.
type failingRepository struct{}

func (r *failingRepository) GetFlag(context.Context, string) (*featureflags.Flag, error) {
	return nil, errors.New("store unavailable")
}

func (r *failingRepository) GetAllFlags(context.Context) (map[string]*featureflags.Flag, error) {
	return nil, errors.New("store unavailable")
}

func (r *failingRepository) SetFlag(context.Context, *featureflags.Flag) error {
	return errors.New("store unavailable")
}

func (r *failingRepository) SetFlags(context.Context, []*featureflags.Flag) error {
	return errors.New("store unavailable")
}

func (r *failingRepository) DeleteFlag(context.Context, string) error {
	return errors.New("store unavailable")
}
