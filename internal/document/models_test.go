package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeDefaultsMissingCollections(t *testing.T) {
	d, err := Decode([]byte(`{"settings":{"backgroundColor":"#fff"},"projects":[{"id":1,"title":"a"}]}`))
	require.NoError(t, err)
	require.Equal(t, "#fff", d.Settings["backgroundColor"])
	require.Len(t, d.Projects, 1)
	for _, c := range Collections {
		require.NotNil(t, *d.Items(c), "collection %s should not be nil", c)
	}
	require.Empty(t, d.Certificates)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := Default()
	d.Projects = append(d.Projects, Item{"id": float64(1700000000001), "title": "Site", "tags": []any{"go", "web"}})
	d.Media = append(d.Media, Item{"id": float64(1700000000002), "type": "image", "url": "data:image/png;base64,AA=="})

	b, err := Encode(d)
	require.NoError(t, err)
	back, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, d, back)
}

func TestCloneIsDeep(t *testing.T) {
	d := Default()
	d.Tools = []Item{{"id": float64(1), "name": "x", "meta": map[string]any{"k": "v"}}}
	c := d.Clone()

	c.Settings["backgroundColor"] = "#123456"
	c.Tools[0]["name"] = "y"
	c.Tools[0]["meta"].(map[string]any)["k"] = "changed"

	require.Equal(t, "#000000", d.Settings["backgroundColor"])
	require.Equal(t, "x", d.Tools[0]["name"])
	require.Equal(t, "v", d.Tools[0]["meta"].(map[string]any)["k"])
}

func TestRedactedDropsAdminPassword(t *testing.T) {
	d := Default()
	d.Settings[SettingAdminPassword] = "secret"
	r := d.Redacted()
	require.NotContains(t, r.Settings, SettingAdminPassword)
	require.Equal(t, "secret", d.Settings[SettingAdminPassword])
}

func TestIDString(t *testing.T) {
	require.Equal(t, "1700000000000", IDString(float64(1700000000000)))
	require.Equal(t, "1700000000000", IDString("1700000000000"))
	require.Equal(t, "42", IDString(int64(42)))
	require.Equal(t, "", IDString(nil))
	require.Equal(t, "1.5", IDString(1.5))
}

func TestParseCollection(t *testing.T) {
	c, ok := ParseCollection("certificates")
	require.True(t, ok)
	require.Equal(t, Certificates, c)
	_, ok = ParseCollection("settings")
	require.False(t, ok)
}
