package sqlstore

import "github.com/goliatone/go-forms/core"

var (
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
	_ core.FormStore              = (*FormStore)(nil)
	_ core.FormStore              = (*CachedFormStore)(nil)
	_ core.ResponseStore          = (*ResponseStore)(nil)
)
