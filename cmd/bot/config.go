package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"nxt-tipbot/domain"
)

type Config struct {
	APIToken          string        `env:"API_TOKEN,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LedgerURL         string        `env:"LEDGER_URL,required=true"`
	MasterSecret      string        `env:"MASTER_SECRET"`
	BackupEnabled     bool          `env:"BACKUP_ENABLED,default=false"`
	BackupFilepath    string        `env:"BACKUP_FILEPATH"`
	BackupInterval    time.Duration `env:"BACKUP_INTERVAL,default=6h"`
	ReconnectInterval time.Duration `env:"RECONNECT_INTERVAL,default=1m"`
	ReconnectBlocking bool          `env:"RECONNECT_BLOCKING,default=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=info"`
	Assets            string        `env:"ASSETS"`
	Currencies        string        `env:"CURRENCIES"`
}

// UnitDescriptor is one configured asset or currency: JSON array elements
// of the ASSETS and CURRENCIES variables, in the order they should appear
// after the native unit.
type UnitDescriptor struct {
	ID       uint64   `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Decimals uint32   `json:"decimals" validate:"lte=8"`
	Message  string   `json:"message"`
	Monikers []string `json:"monikers"`
	Reaction string   `json:"reaction"`
}

var validate = validator.New()

func decodeUnits(raw string) ([]UnitDescriptor, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var units []UnitDescriptor
	if err := json.Unmarshal([]byte(raw), &units); err != nil {
		return nil, err
	}
	for i, unit := range units {
		if err := validate.Struct(unit); err != nil {
			return nil, fmt.Errorf("descriptor %d (%s): %w", i, unit.Name, err)
		}
	}
	return units, nil
}

// buildRegistry loads the unit catalog: the native unit, then the
// configured assets, then the configured currencies, in order.
func buildRegistry(config Config) (*domain.Registry, error) {
	registry := domain.NewRegistry()

	assets, err := decodeUnits(config.Assets)
	if err != nil {
		return nil, fmt.Errorf("ASSETS: %w", err)
	}
	for _, descriptor := range assets {
		if err := registry.Add(toTransferable(descriptor, domain.KindAsset)); err != nil {
			return nil, fmt.Errorf("ASSETS: %w", err)
		}
	}

	currencies, err := decodeUnits(config.Currencies)
	if err != nil {
		return nil, fmt.Errorf("CURRENCIES: %w", err)
	}
	for _, descriptor := range currencies {
		if err := registry.Add(toTransferable(descriptor, domain.KindCurrency)); err != nil {
			return nil, fmt.Errorf("CURRENCIES: %w", err)
		}
	}
	return registry, nil
}

func toTransferable(descriptor UnitDescriptor, kind domain.Kind) domain.Transferable {
	return domain.Transferable{
		Kind:             kind,
		ID:               descriptor.ID,
		Name:             descriptor.Name,
		Decimals:         descriptor.Decimals,
		Monikers:         descriptor.Monikers,
		ReceivedTemplate: descriptor.Message,
		Reaction:         descriptor.Reaction,
	}
}
