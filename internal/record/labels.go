package record

import (
	"context"
	"fmt"
	"strings"
)

// resolveLabels maps label inputs to row ids against a lookup table. Inputs
// may be existing row ids or labels; unseen labels are created. The table is
// listed once per call and used as a cache; a failed create falls back to a
// re-list, since a unique constraint on the label column means a concurrent
// caller may have created the same label first.
func resolveLabels(ctx context.Context, credential string, repo LabelStore, inputs []string) ([]string, error) {
	cleaned := dedupe(inputs)
	if len(cleaned) == 0 {
		return nil, nil
	}

	byLabel, ids, err := index(ctx, credential, repo)
	if err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(cleaned))
	taken := make(map[string]struct{}, len(cleaned))
	add := func(id string) {
		if _, dup := taken[id]; dup {
			return
		}
		taken[id] = struct{}{}
		resolved = append(resolved, id)
	}

	for _, input := range cleaned {
		if _, ok := ids[input]; ok {
			add(input)
			continue
		}
		if id, ok := byLabel[input]; ok {
			add(id)
			continue
		}

		created, err := repo.Create(ctx, credential, input)
		if err == nil && created != nil {
			add(created.ID)
			continue
		}

		// Lost a create race or the insert was rejected; re-list once.
		byLabel, ids, err = index(ctx, credential, repo)
		if err != nil {
			return nil, err
		}
		id, ok := byLabel[input]
		if !ok {
			return nil, fmt.Errorf("label %q could not be resolved or created", input)
		}
		add(id)
	}
	return resolved, nil
}

func index(ctx context.Context, credential string, repo LabelStore) (map[string]string, map[string]struct{}, error) {
	rows, err := repo.List(ctx, credential)
	if err != nil {
		return nil, nil, err
	}
	byLabel := make(map[string]string, len(rows))
	ids := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		byLabel[row.Label] = row.ID
		ids[row.ID] = struct{}{}
	}
	return byLabel, ids, nil
}

func dedupe(inputs []string) []string {
	seen := make(map[string]struct{}, len(inputs))
	out := make([]string, 0, len(inputs))
	for _, in := range inputs {
		trimmed := strings.TrimSpace(in)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
