package driven

import "context"

// SettingStore defines the driven port for the flat key/value settings kept
// between runs. Every Set is persisted immediately.
type SettingStore interface {
	// Get returns the value for key, or "" if it was never set.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
