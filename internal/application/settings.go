package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// LoadQuery rebuilds the last saved query. Missing keys leave their field
// empty; an unparsable CI flag reads as false. FetchNow is never persisted.
func LoadQuery(ctx context.Context, store driven.SettingStore) (model.Query, error) {
	var q model.Query

	fields := []struct {
		key string
		dst *string
	}{
		{model.SettingOrgName, &q.OrgName},
		{model.SettingReviewRequestedUser, &q.ReviewRequestedUser},
		{model.SettingAuthor, &q.Author},
		{model.SettingTitle, &q.Title},
		{model.SettingReviewedBy, &q.ReviewedBy},
	}

	for _, f := range fields {
		v, err := store.Get(ctx, f.key)
		if err != nil {
			return model.Query{}, fmt.Errorf("loading query: %w", err)
		}
		*f.dst = v
	}

	checkCI, err := store.Get(ctx, model.SettingCheckCI)
	if err != nil {
		return model.Query{}, fmt.Errorf("loading query: %w", err)
	}
	q.CheckCI, _ = strconv.ParseBool(checkCI)

	return q, nil
}

// SaveQuery persists every field of q except FetchNow.
func SaveQuery(ctx context.Context, store driven.SettingStore, q model.Query) error {
	values := []struct{ key, value string }{
		{model.SettingOrgName, q.OrgName},
		{model.SettingReviewRequestedUser, q.ReviewRequestedUser},
		{model.SettingAuthor, q.Author},
		{model.SettingTitle, q.Title},
		{model.SettingReviewedBy, q.ReviewedBy},
		{model.SettingCheckCI, strconv.FormatBool(q.CheckCI)},
	}

	for _, kv := range values {
		if err := store.Set(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("saving query: %w", err)
		}
	}
	return nil
}
