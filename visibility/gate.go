package visibility

import (
	"context"

	"github.com/hoshi-social/feedstream/model"
)

// Gate decides whether a caller may read content scoped to a resolved
// entity. The feed engine only calls it as a predicate; policy logic lives
// behind this interface. A nil caller is an anonymous request.
type Gate interface {
	Authorize(ctx context.Context, caller *model.User, resource interface{}) bool
}
