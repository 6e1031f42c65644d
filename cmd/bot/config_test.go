package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

func Test_BuildRegistry_From_Config(t *testing.T) {
	req := require.New(t)
	config := Config{
		Assets: `[{
			"id": 6926770479287491943,
			"name": "DKT",
			"decimals": 0,
			"message": "{sender} sent you {amount} {unit}!",
			"monikers": ["dekitas"],
			"reaction": "dekitas"
		}]`,
		Currencies: `[{"id": 321, "name": "EUR", "decimals": 2}]`,
	}

	registry, err := buildRegistry(config)
	req.NoError(err)

	all := registry.All()
	req.Len(all, 3)
	req.True(all[0].IsNative())

	dkt, ok := registry.Lookup("dekitas")
	req.True(ok)
	req.Equal(domain.KindAsset, dkt.Kind)
	req.Equal(uint64(6926770479287491943), dkt.ID)
	req.Equal("{sender} sent you {amount} {unit}!", dkt.ReceivedTemplate)
	req.Equal("dekitas", dkt.Reaction)

	eur, ok := registry.Lookup("eur")
	req.True(ok)
	req.Equal(domain.KindCurrency, eur.Kind)
	req.Equal(uint32(2), eur.Decimals)
}

func Test_BuildRegistry_Empty_Config_Is_Native_Only(t *testing.T) {
	req := require.New(t)

	registry, err := buildRegistry(Config{})
	req.NoError(err)
	req.Len(registry.All(), 1)
}

func Test_BuildRegistry_Rejects_Bad_Descriptors(t *testing.T) {
	req := require.New(t)

	// Not JSON at all.
	_, err := buildRegistry(Config{Assets: `DKT:123`})
	req.Error(err)

	// Missing required fields.
	_, err = buildRegistry(Config{Assets: `[{"name": "DKT"}]`})
	req.Error(err)

	// More decimal places than the ledger supports.
	_, err = buildRegistry(Config{Assets: `[{"id": 1, "name": "DKT", "decimals": 9}]`})
	req.Error(err)
}

func Test_BuildRegistry_Rejects_Name_Collisions(t *testing.T) {
	req := require.New(t)

	_, err := buildRegistry(Config{
		Assets:     `[{"id": 1, "name": "DKT"}]`,
		Currencies: `[{"id": 2, "name": "dkt"}]`,
	})
	req.ErrorIs(err, errors.ErrDuplicateUnit)

	_, err = buildRegistry(Config{Assets: `[{"id": 3, "name": "NXT"}]`})
	req.ErrorIs(err, errors.ErrDuplicateUnit)
}
