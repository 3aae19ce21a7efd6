// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/luxfi/lightswap/modules"
	"github.com/luxfi/lightswap/precompileconfig"

	// registered modules
	_ "github.com/luxfi/lightswap/allowlist"
	_ "github.com/luxfi/lightswap/erc20"
	_ "github.com/luxfi/lightswap/indexer"
	_ "github.com/luxfi/lightswap/light"
)

var errNoChainID = errors.New("genesis chainId must be set")

// Genesis is the initial chain parameters plus one config per enabled
// module, in module address order.
type Genesis struct {
	ChainID   *big.Int
	Timestamp uint64
	Configs   []precompileconfig.Config
}

type genesisHeader struct {
	ChainID   uint64 `json:"chainId"`
	Timestamp uint64 `json:"timestamp"`
}

// ParseGenesis decodes a JSON genesis document. Keys naming a registered
// module are decoded with that module's config type; unknown keys are
// rejected.
func ParseGenesis(data []byte) (*Genesis, error) {
	var header genesisHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decoding genesis: %w", err)
	}
	if header.ChainID == 0 {
		return nil, errNoChainID
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding genesis: %w", err)
	}
	delete(raw, "chainId")
	delete(raw, "timestamp")

	g := &Genesis{
		ChainID:   new(big.Int).SetUint64(header.ChainID),
		Timestamp: header.Timestamp,
	}
	for _, m := range modules.RegisteredModules() {
		msg, ok := raw[m.ConfigKey]
		if !ok {
			continue
		}
		delete(raw, m.ConfigKey)
		cfg := m.MakeConfig()
		if err := json.Unmarshal(msg, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", m.ConfigKey, err)
		}
		g.Configs = append(g.Configs, cfg)
	}
	if len(raw) > 0 {
		return nil, fmt.Errorf("unknown genesis keys %q", slices.Sorted(maps.Keys(raw)))
	}
	return g, nil
}

// LoadGenesis reads a genesis file. Files ending in .yaml or .yml are
// decoded as YAML; addresses in them must be quoted strings.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("converting %s: %w", path, err)
		}
	}
	return ParseGenesis(data)
}
