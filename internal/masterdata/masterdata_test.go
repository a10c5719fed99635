package masterdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	vendors := write(t, dir, "vendors.yaml", "Globex Corporation:\n  - Globex\n  - GLOBEX CORP.\n")
	uoms := write(t, dir, "uoms.json", `{"EA": ["each", "pcs"]}`)

	tables := Load(Paths{Vendors: vendors, UOMs: uoms}, nil)
	assert.Equal(t, []string{"Globex", "GLOBEX CORP."}, tables.Vendors["Globex Corporation"])
	assert.Equal(t, []string{"each", "pcs"}, tables.UOMs["EA"])
	assert.Empty(t, tables.SKUs)

	got, ok := tables.ResolveVendor("globex corp")
	require.True(t, ok)
	assert.Equal(t, "Globex Corporation", got)

	got, ok = tables.ResolveVendor("Globex Corporation")
	require.True(t, ok)
	assert.Equal(t, "Globex Corporation", got)

	_, ok = tables.ResolveVendor("Initech")
	assert.False(t, ok)

	sum := tables.Summary()
	require.NotNil(t, sum)
	assert.Len(t, sum.VendorAliases, 1)
}

func TestLoadSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	bad := write(t, dir, "skus.yaml", "- not\n- a map\n")

	tables := Load(Paths{Vendors: filepath.Join(dir, "missing.yaml"), SKUs: bad}, nil)
	assert.True(t, tables.Empty())
	assert.Nil(t, tables.Summary())

	var none *Tables
	_, ok := none.ResolveVendor("x")
	assert.False(t, ok)
}
