package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/authgate-io/authgate/store"
)

// GetSetting reads one system setting. Requires system.read.
func (e *Engine) GetSetting(ctx context.Context, authCtx *AuthContext, key string) (*store.SystemSetting, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "system.read"); err != nil {
		return nil, err
	}

	setting, err := e.store.FindSettingByKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("setting lookup: %w", err)
	}
	return setting, nil
}

// UpdateSetting upserts one system setting. Requires system.update.
func (e *Engine) UpdateSetting(ctx context.Context, authCtx *AuthContext, key string, value any) (*store.SystemSetting, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "system.update"); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, fmt.Errorf("%w: setting key required", ErrValidation)
	}

	setting, err := e.store.UpsertSettingByKey(ctx, key, value)
	if err != nil {
		return nil, fmt.Errorf("upsert setting: %w", err)
	}
	return setting, nil
}

// ResetSetting deletes one system setting, reverting it to whatever
// the consumer's default is. Requires system.reset; absent keys reset
// to nothing successfully.
func (e *Engine) ResetSetting(ctx context.Context, authCtx *AuthContext, key string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "system.reset"); err != nil {
		return err
	}

	if err := e.store.DeleteSettingByKey(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete setting: %w", err)
	}
	return nil
}
