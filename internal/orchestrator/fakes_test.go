package orchestrator

import (
    "context"
    "errors"
    "io"
    "sync"
    "testing"

    "github.com/local/pdftables/internal/queue"
    "github.com/local/pdftables/internal/storage"
    "github.com/local/pdftables/internal/store"
)

type memStore struct {
    mu        sync.Mutex
    jobs      map[string]store.Job
    uploads   map[string]store.Upload
    converted map[string]store.ConvertedFile
}

func newMemStore() *memStore {
    return &memStore{jobs: map[string]store.Job{}, uploads: map[string]store.Upload{}, converted: map[string]store.ConvertedFile{}}
}

func (m *memStore) SaveJob(_ context.Context, j store.Job) error {
    m.mu.Lock(); defer m.mu.Unlock()
    j.FileIDs = append([]string(nil), j.FileIDs...)
    j.Errors = append([]store.FileError(nil), j.Errors...)
    j.Converted = append([]store.ConvertedFile(nil), j.Converted...)
    m.jobs[j.ID] = j
    return nil
}

func (m *memStore) GetJob(_ context.Context, id string) (store.Job, bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    j, ok := m.jobs[id]
    return j, ok, nil
}

func (m *memStore) DeleteJob(_ context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    delete(m.jobs, id)
    return nil
}

func (m *memStore) SaveUpload(_ context.Context, u store.Upload) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.uploads[u.ID] = u
    return nil
}

func (m *memStore) GetUpload(_ context.Context, id string) (store.Upload, bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    u, ok := m.uploads[id]
    return u, ok, nil
}

func (m *memStore) DeleteUpload(_ context.Context, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    delete(m.uploads, id)
    return nil
}

func (m *memStore) IndexConverted(_ context.Context, f store.ConvertedFile) error {
    m.mu.Lock(); defer m.mu.Unlock()
    m.converted[f.FileID] = f
    return nil
}

func (m *memStore) GetConverted(_ context.Context, id string) (store.ConvertedFile, bool, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    f, ok := m.converted[id]
    return f, ok, nil
}

func (m *memStore) DeleteConverted(_ context.Context, ids ...string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    for _, id := range ids { delete(m.converted, id) }
    return nil
}

type memQueue struct {
    mu        sync.Mutex
    msgs      []queue.Message
    cancelled map[string]bool
    err       error
}

func newMemQueue() *memQueue { return &memQueue{cancelled: map[string]bool{}} }

func (q *memQueue) Enqueue(_ context.Context, m queue.Message) error {
    q.mu.Lock(); defer q.mu.Unlock()
    if q.err != nil { return q.err }
    q.msgs = append(q.msgs, m)
    return nil
}

func (q *memQueue) CancelJob(_ context.Context, id string) error {
    q.mu.Lock(); defer q.mu.Unlock()
    q.cancelled[id] = true
    return nil
}

func (q *memQueue) IsCancelled(_ context.Context, id string) (bool, error) {
    q.mu.Lock(); defer q.mu.Unlock()
    return q.cancelled[id], nil
}

// flakyBackend fails the first n Puts.
type flakyBackend struct {
    storage.Backend
    mu    sync.Mutex
    fails int
}

func (f *flakyBackend) Put(ctx context.Context, key string, r io.Reader, size int64) error {
    f.mu.Lock()
    if f.fails > 0 {
        f.fails--
        f.mu.Unlock()
        return errors.New("connection reset by peer")
    }
    f.mu.Unlock()
    return f.Backend.Put(ctx, key, r, size)
}

type fixture struct {
    store   *memStore
    queue   *memQueue
    backend storage.Backend
    deps    Dependencies
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    local, err := storage.NewLocal(t.TempDir())
    if err != nil { t.Fatal(err) }
    f := &fixture{store: newMemStore(), queue: newMemQueue(), backend: local}
    f.deps = Dependencies{Queue: f.queue, Jobs: f.store, Files: f.store, Storage: local}
    return f
}
