package visibility

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPolicy), 0o600))

	changes := make(chan *Policy, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(p *Policy) { changes <- p })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	updated := `
roles:
  - id: bed_user
    hide: ["Sales Details"]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	select {
	case p := <-changes:
		assert.Equal(t, []string{"Sales Details"}, p.HideList(RoleBedUser))
	case <-time.After(5 * time.Second):
		t.Fatal("policy was not reloaded")
	}
}

func TestWatcher_KeepsPreviousPolicyOnBadReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "roles.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonPolicy), 0o600))

	changes := make(chan *Policy, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(p *Policy) { changes <- p })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	select {
	case <-changes:
		t.Fatal("broken policy must not be delivered")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPolicy), 0o600))

	changes := make(chan *Policy, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(p *Policy) { changes <- p })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte(yamlPolicy), 0o600))

	select {
	case <-changes:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher("roles.yaml", 0, nil)
	require.NoError(t, err)
	w.Stop()
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestNewWatcher_RejectsUnknownExtension(t *testing.T) {
	_, err := NewWatcher("roles.ini", 0, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
