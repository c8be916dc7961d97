package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashrun/kash/internal/action"
	"github.com/kashrun/kash/internal/item"
	"github.com/kashrun/kash/internal/param"
)

type fakeStore struct {
	imported item.Item
	err      error
}

func (f *fakeStore) Import(ctx context.Context, locator string, asType item.Type, reimport bool) (item.Item, error) {
	if f.err != nil {
		return item.Item{}, f.err
	}
	f.imported.StorePath = "resources/imported.resource.md"
	return f.imported, nil
}

func TestImportAction_Run_UsesStoreFromContext(t *testing.T) {
	fs := &fakeStore{imported: item.Item{Type: item.TypeResource}}
	ctx := WithStore(context.Background(), fs)
	ec := &action.ExecContext{Ctx: ctx, Params: param.TypedValues{"reimport": false}}

	res, err := (importAction{}).Run(ctx, ec, action.ActionInput{Items: []item.Item{{ExternalPath: "/tmp/x.txt"}}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "resources/imported.resource.md", res.Items[0].StorePath)
}

func TestImportAction_Run_MissingStoreErrors(t *testing.T) {
	ec := &action.ExecContext{Ctx: context.Background(), Params: param.TypedValues{}}
	_, err := (importAction{}).Run(context.Background(), ec, action.ActionInput{Items: []item.Item{{ExternalPath: "/tmp/x.txt"}}})
	assert.Error(t, err)
}

func TestImportAction_Run_RejectsWrongArgCount(t *testing.T) {
	fs := &fakeStore{}
	ctx := WithStore(context.Background(), fs)
	ec := &action.ExecContext{Ctx: ctx, Params: param.TypedValues{}}
	_, err := (importAction{}).Run(ctx, ec, action.ActionInput{Items: nil})
	assert.Error(t, err)
}

func TestExportAction_Run_WritesFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "out.txt")

	ec := &action.ExecContext{Ctx: context.Background(), Params: param.TypedValues{"path": dest}}
	_, err := (exportAction{}).Run(context.Background(), ec, action.ActionInput{Items: []item.Item{{Body: "exported content"}}})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "exported content", string(data))
}

func TestExportAction_Run_RequiresPath(t *testing.T) {
	ec := &action.ExecContext{Ctx: context.Background(), Params: param.TypedValues{}}
	_, err := (exportAction{}).Run(context.Background(), ec, action.ActionInput{Items: []item.Item{{Body: "x"}}})
	assert.Error(t, err)
}

func TestRegister_AddsImportAndExportActions(t *testing.T) {
	r := action.NewRegistry()
	Register(r)

	_, err := r.Get("import_item")
	require.NoError(t, err)
	_, err = r.Get("export_item")
	require.NoError(t, err)
}
