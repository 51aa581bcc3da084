package history

import "time"

// Adapter bridges Store to the core HistoryStore port.
type Adapter struct {
	store *Store
}

func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

func (a *Adapter) SaveBuild(projectKey string, build BuildRecord) error {
	return a.store.SaveBuild(projectKey, build)
}

func (a *Adapter) SaveSnapshot(projectKey string, snapshot Snapshot) error {
	return a.store.SaveSnapshot(projectKey, snapshot)
}

func (a *Adapter) LoadBuilds(projectKey string, limit int) ([]BuildRecord, error) {
	return a.store.LoadBuilds(projectKey, limit)
}

func (a *Adapter) LoadBuildStats(projectKey string, since time.Time, limit int) ([]BuildStat, error) {
	return a.store.LoadBuildStats(projectKey, since, limit)
}

func (a *Adapter) LoadLatestSnapshot(projectKey string) (Snapshot, bool, error) {
	return a.store.LoadLatestSnapshot(projectKey)
}
