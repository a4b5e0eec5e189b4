package settings

import (
	"context"
	"testing"

	"github.com/nulzo/chat-registry/internal/credentials"
	"github.com/nulzo/chat-registry/internal/store/memory"
	"github.com/nulzo/chat-registry/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	dialog  *Dialog
	notes   []api.Notification
	changes []bool
}

func newFixture(t *testing.T, hc credentials.HostContext, env map[string]string) *fixture {
	t.Helper()

	st := memory.New()
	t.Cleanup(func() { _ = st.Close() })

	envSrc := &credentials.EnvSource{Lookup: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
	storeSrc := credentials.NewStoreSource(st, nil)

	f := &fixture{store: st}
	f.svc = NewService(st,
		credentials.NewHostResolver(hc, envSrc, storeSrc),
		credentials.ForContext(hc, envSrc, storeSrc),
		nil,
	)
	f.dialog = NewDialog(f.svc, NotifierFunc(func(n api.Notification) {
		f.notes = append(f.notes, n)
	}))
	f.dialog.OnOpenChange = func(open bool) { f.changes = append(f.changes, open) }
	return f
}

func (f *fixture) stored(t *testing.T) (string, bool) {
	t.Helper()
	v, ok, err := f.store.Get(context.Background(), credentials.HostKey)
	require.NoError(t, err)
	return v, ok
}

func TestDialog_OpenShowsPersistedOrDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.StoreContext, nil)

	f.dialog.Open(ctx)
	assert.True(t, f.dialog.IsOpen())
	assert.Equal(t, credentials.DefaultHost, f.dialog.Draft())
	assert.Equal(t, []bool{true}, f.changes)
}

func TestDialog_SaveRejectsBlankDraft(t *testing.T) {
	for _, draft := range []string{"", "   ", "\t\n"} {
		t.Run(draft, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, credentials.StoreContext, nil)
			require.NoError(t, f.store.Set(ctx, credentials.HostKey, "http://prev:11434"))

			f.dialog.Open(ctx)
			f.dialog.SetDraft(draft)
			err := f.dialog.Save(ctx)

			assert.ErrorIs(t, err, ErrEmptyHost)
			assert.True(t, f.dialog.IsOpen())
			require.Len(t, f.notes, 1)
			assert.Equal(t, api.Notification{Level: LevelError, Message: MsgEmptyHost}, f.notes[0])

			v, _ := f.stored(t)
			assert.Equal(t, "http://prev:11434", v)
		})
	}
}

func TestDialog_SaveTrimsPersistsAndCloses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.StoreContext, nil)

	f.dialog.Open(ctx)
	f.dialog.SetDraft(" http://h/ ")
	require.NoError(t, f.dialog.Save(ctx))

	v, ok := f.stored(t)
	require.True(t, ok)
	assert.Equal(t, "http://h/", v)
	assert.False(t, f.dialog.IsOpen())
	assert.Equal(t, []bool{true, false}, f.changes)
	require.Len(t, f.notes, 1)
	assert.Equal(t, api.Notification{Level: LevelSuccess, Message: MsgSaved}, f.notes[0])
}

func TestDialog_ReopenAfterExternalChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.StoreContext, nil)

	f.dialog.Open(ctx)
	f.dialog.Cancel()

	require.NoError(t, f.store.Set(ctx, credentials.HostKey, "http://elsewhere:11434"))

	f.dialog.Open(ctx)
	assert.Equal(t, "http://elsewhere:11434", f.dialog.Draft())
}

func TestDialog_SyncWhileOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.StoreContext, nil)

	f.dialog.Open(ctx)
	f.dialog.SetDraft("http://typing")
	require.NoError(t, f.store.Set(ctx, credentials.HostKey, "http://external:1"))
	f.dialog.Sync(ctx)
	assert.Equal(t, "http://external:1", f.dialog.Draft())

	f.dialog.Cancel()
	f.dialog.Sync(ctx)
	assert.Empty(t, f.dialog.Draft())
}

func TestDialog_CancelPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.StoreContext, nil)

	f.dialog.Open(ctx)
	f.dialog.SetDraft("http://never-saved")
	f.dialog.Cancel()

	_, ok := f.stored(t)
	assert.False(t, ok)
	assert.False(t, f.dialog.IsOpen())
	assert.Empty(t, f.notes)
	assert.Equal(t, []bool{true, false}, f.changes)

	// input while closed is dropped
	f.dialog.SetDraft("x")
	assert.Empty(t, f.dialog.Draft())
}

func TestDialog_EnvContextIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.EnvContext, map[string]string{credentials.HostEnv: "http://env:11434"})

	f.dialog.Open(ctx)
	assert.Equal(t, "http://env:11434", f.dialog.Draft())

	f.dialog.SetDraft("http://new")
	assert.ErrorIs(t, f.dialog.Save(ctx), ErrReadOnly)
	assert.True(t, f.dialog.IsOpen())
	require.Len(t, f.notes, 1)
	assert.Equal(t, LevelError, f.notes[0].Level)

	_, ok := f.stored(t)
	assert.False(t, ok)
}

func TestService_Secrets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, credentials.StoreContext, map[string]string{"OPENAI_API_KEY": "sk-env"})

	configured, source := f.svc.SecretStatus(ctx, "OPENAI_API_KEY")
	assert.True(t, configured)
	assert.Equal(t, "env", source)

	configured, _ = f.svc.SecretStatus(ctx, "GROQ_API_KEY")
	assert.False(t, configured)

	require.NoError(t, f.svc.SetSecret(ctx, "GROQ_API_KEY", "gsk"))
	configured, source = f.svc.SecretStatus(ctx, "GROQ_API_KEY")
	assert.True(t, configured)
	assert.Equal(t, "store", source)

	require.NoError(t, f.svc.DeleteSecret(ctx, "GROQ_API_KEY"))
	configured, _ = f.svc.SecretStatus(ctx, "GROQ_API_KEY")
	assert.False(t, configured)

	assert.ErrorIs(t, f.svc.SetSecret(ctx, "theme", "dark"), ErrNotSecret)
	assert.ErrorIs(t, f.svc.SetSecret(ctx, "XAI_API_KEY", "  "), ErrEmptyCredential)
	assert.ErrorIs(t, f.svc.DeleteSecret(ctx, credentials.HostKey), ErrNotSecret)
}

func TestService_SecretNames(t *testing.T) {
	ctx := context.Background()
	known := []string{"OPENAI_API_KEY", "GROQ_API_KEY"}

	f := newFixture(t, credentials.StoreContext, nil)
	require.NoError(t, f.store.Set(ctx, "ZETA_API_KEY", "z"))
	require.NoError(t, f.store.Set(ctx, "ALPHA_API_KEY", "a"))
	require.NoError(t, f.store.Set(ctx, "GROQ_API_KEY", "gsk"))
	require.NoError(t, f.store.Set(ctx, "theme", "dark"))

	names, err := f.svc.SecretNames(ctx, known)
	require.NoError(t, err)
	assert.Equal(t, []string{"OPENAI_API_KEY", "GROQ_API_KEY", "ALPHA_API_KEY", "ZETA_API_KEY"}, names)

	env := newFixture(t, credentials.EnvContext, nil)
	require.NoError(t, env.store.Set(ctx, "ALPHA_API_KEY", "a"))
	names, err = env.svc.SecretNames(ctx, known)
	require.NoError(t, err)
	assert.Equal(t, known, names)
}
