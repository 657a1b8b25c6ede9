package app

import (
	"context"
	"fmt"

	"paidreviews/internal/domain"
)

// commonPageLimits are the page sizes the frontend actually requests; only
// their first pages are worth evicting eagerly, the rest ages out by TTL.
var commonPageLimits = []int{10, 25, 50}

func invalidateReviewCaches(ctx context.Context, c domain.Cache, settingsID, tag string) {
	if c == nil {
		return
	}
	_ = c.Del(ctx, "stats:"+settingsID+":"+tag)
	_ = c.Del(ctx, "tags:"+settingsID)
	for _, lim := range commonPageLimits {
		_ = c.Del(ctx, fmt.Sprintf("reviews:%s:%s:%d:first", settingsID, tag, lim))
	}
}
