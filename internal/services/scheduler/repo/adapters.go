package repo

import (
	"context"
	"fmt"
	"sort"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
)

// Recipients yields the recipients a scheduler tick visits: the configured
// list when present, otherwise every owner found in the data layer.
type Recipients struct {
	Static []int64
	R      entity.Reader
}

func (a Recipients) List(ctx context.Context) ([]int64, error) {
	if len(a.Static) > 0 {
		out := append([]int64(nil), a.Static...)
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out, nil
	}
	if a.R == nil {
		return nil, nil
	}
	ids, err := a.R.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover recipients: %w", err)
	}
	return ids, nil
}
