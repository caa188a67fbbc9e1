package parsers

import (
	"context"
	"log/slog"
)

// MirrorStore pairs a remote store with a local cache. Loads prefer the
// remote and refresh the cache; when the remote is unreachable the cached
// copy is served. Saves write the cache first, then the remote.
type MirrorStore struct {
	local  Store
	remote Store
	logger *slog.Logger
}

// NewMirrorStore creates a mirrored store.
func NewMirrorStore(local, remote Store, logger *slog.Logger) *MirrorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorStore{local: local, remote: remote, logger: logger}
}

// Name returns the backend identifier.
func (m *MirrorStore) Name() string { return m.remote.Name() + "+" + m.local.Name() }

// Load reads the remote document, falling back to the local copy.
func (m *MirrorStore) Load(ctx context.Context) (Document, error) {
	doc, err := m.remote.Load(ctx)
	if err != nil {
		m.logger.Warn("remote parsers load failed, using local copy",
			"backend", m.remote.Name(),
			"error", err)
		local, lerr := m.local.Load(ctx)
		if lerr != nil {
			// The remote failure is the more useful one to report.
			return nil, err
		}
		return local, nil
	}
	if err := m.local.Save(ctx, doc); err != nil {
		m.logger.Warn("failed to refresh local parsers copy", "error", err)
	}
	return doc, nil
}

// Save writes the local copy and then the remote. A remote failure is
// returned after the local copy has been written.
func (m *MirrorStore) Save(ctx context.Context, doc Document) error {
	if err := m.local.Save(ctx, doc); err != nil {
		return err
	}
	return m.remote.Save(ctx, doc)
}

var _ Store = (*MirrorStore)(nil)
