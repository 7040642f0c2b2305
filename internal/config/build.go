package config

import (
	"fmt"
	"sort"

	"github.com/dekarrin/cuttle"
	"github.com/dekarrin/cuttle/collection"
	"github.com/dekarrin/cuttle/constraint"
)

// CollectionOptions returns the collection options that set up a collection as
// described by col.
func CollectionOptions(col cuttle.CollectionConfig) ([]collection.Option, error) {
	if col.PrimaryKey == "" {
		if col.GenerateKeys {
			return nil, fmt.Errorf("generate_keys requires primary_key")
		}
		return []collection.Option{collection.WithoutPrimaryKey()}, nil
	}

	kt, err := collection.ParseKeyType(col.PrimaryKeyType)
	if err != nil {
		return nil, fmt.Errorf("primary_key_type: %w", err)
	}

	opts := []collection.Option{collection.WithPrimaryKey(col.PrimaryKey, kt)}
	if col.GenerateKeys {
		if kt != collection.KeyUUID {
			return nil, fmt.Errorf("generate_keys requires primary_key_type uuid")
		}
		opts = append(opts, collection.UUIDKeys())
	}

	return opts, nil
}

// Contract builds the Contract declared by ct. Properties are constrained in
// name order, using the constraint names in reg. If reg is nil,
// constraint.DefaultRegistry is used.
func Contract(ct cuttle.ContractConfig, reg *constraint.Registry) (*constraint.Contract, error) {
	var opts []constraint.ContractOption
	if reg != nil {
		opts = append(opts, constraint.WithRegistry(reg))
	}
	contract := constraint.NewContract(opts...)

	props := make([]string, 0, len(ct))
	for p := range ct {
		props = append(props, p)
	}
	sort.Strings(props)

	for _, p := range props {
		if err := contract.Constrain(p, constraint.Options(ct[p])); err != nil {
			return nil, err
		}
	}

	return contract, nil
}

// Contracts builds every contract in cfg, keyed by collection name.
func Contracts(cfg cuttle.Config, reg *constraint.Registry) (map[string]*constraint.Contract, error) {
	built := make(map[string]*constraint.Contract, len(cfg.Contracts))
	for name, ct := range cfg.Contracts {
		contract, err := Contract(ct, reg)
		if err != nil {
			return nil, fmt.Errorf("contracts: %s: %w", name, err)
		}
		built[name] = contract
	}
	return built, nil
}
