package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nxt-tipbot/errors"
)

func Test_Registry_Add_Then_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	asset := Transferable{Kind: KindAsset, ID: 6926770479287491943, Name: "DKT", Decimals: 0, Monikers: []string{"dekitas", "dktz"}}
	req.NoError(registry.Add(asset))

	for _, token := range []string{"DKT", "dkt", "DEKITAS", "dktz", "6926770479287491943"} {
		found, ok := registry.Lookup(token)
		req.True(ok, "token %q", token)
		req.Equal(asset, found)
	}
	req.True(registry.Contains(asset))
}

func Test_Registry_Rejects_Collisions(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	req.NoError(registry.Add(Transferable{Kind: KindAsset, ID: 1, Name: "DKT", Monikers: []string{"dekitas"}}))

	cases := map[string]Transferable{
		"same id":                 {Kind: KindCurrency, ID: 1, Name: "OTHER"},
		"same name, other case":   {Kind: KindCurrency, ID: 2, Name: "dkt"},
		"name colliding moniker":  {Kind: KindCurrency, ID: 3, Name: "Dekitas"},
		"moniker colliding name":  {Kind: KindCurrency, ID: 4, Name: "FRESH", Monikers: []string{"DKT"}},
		"native name as moniker":  {Kind: KindCurrency, ID: 5, Name: "FRESH2", Monikers: []string{"nxt"}},
	}
	for label, unit := range cases {
		err := registry.Add(unit)
		req.ErrorIs(err, errors.ErrDuplicateUnit, label)
	}
}

func Test_Registry_All_Yields_Native_First(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	req.NoError(registry.Add(Transferable{Kind: KindAsset, ID: 10, Name: "AAA"}))
	req.NoError(registry.Add(Transferable{Kind: KindCurrency, ID: 20, Name: "BBB"}))

	all := registry.All()
	req.Len(all, 3)
	req.True(all[0].IsNative())
	req.Equal("AAA", all[1].Name)
	req.Equal("BBB", all[2].Name)
}

func Test_Registry_Lookup_Unknown(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	_, ok := registry.Lookup("DOGE")
	req.False(ok)
	_, ok = registry.Lookup("424242")
	req.False(ok)
	_, ok = registry.Lookup("")
	req.False(ok)
}
