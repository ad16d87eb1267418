package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/bulldog/model"
)

// Key returns the store key of the checkpoint for step in run runID.
func Key(runID string, step int) string {
	return fmt.Sprintf("%s/data_%d", runID, step)
}

// Hooks returns save and restore hooks that keep checkpoints in store.
//
// The save hook writes the encoded state under Key(runID, step) and hands
// the key to the history as the token. Steps reused after a revert overwrite
// their earlier checkpoint. The restore hook loads the token recorded for the
// version; a version without a token, or whose key is gone from the store,
// restores nothing.
func Hooks[S model.Cloneable[S]](store Store, codec Codec[S], runID string) (model.SaveHook[S], model.RestoreHook[S]) {
	save := func(ctx context.Context, data S, version model.Version, _ model.Ledger[S]) (string, error) {
		raw, err := codec.Encode(data)
		if err != nil {
			return "", err
		}

		key := Key(runID, version.Step)
		if err := store.Save(ctx, Entry{Key: key, Value: raw}); err != nil {
			return "", err
		}
		return key, nil
	}

	restore := func(ctx context.Context, version model.Version, history model.Ledger[S]) (S, bool, error) {
		var zero S

		snap, ok := history.Lookup(version)
		if !ok {
			return zero, false, nil
		}
		token, ok := snap.Token()
		if !ok {
			return zero, false, nil
		}

		entries, err := store.Load(ctx, token)
		if errors.Is(err, ErrKeyNotFound) {
			return zero, false, nil
		}
		if err != nil {
			return zero, false, err
		}

		data, err := codec.Decode(entries[0].Value)
		if err != nil {
			return zero, false, err
		}
		return data, true, nil
	}

	return save, restore
}

// RunKeys lists the checkpoint keys written for runID.
func RunKeys(ctx context.Context, store Store, runID string) ([]string, error) {
	keys, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	prefix := runID + "/"
	var out []string
	for _, key := range keys {
		if strings.HasPrefix(key, prefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

// Purge deletes every checkpoint written for runID.
func Purge(ctx context.Context, store Store, runID string) error {
	keys, err := RunKeys(ctx, store, runID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return store.Delete(ctx, keys...)
}
