package compiler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// CompiledUnit is the normalized output for one contract. Produced once
// per successful invocation and never mutated afterwards.
type CompiledUnit struct {
	// Contract name, derived from the source file name
	ContractName string `json:"contract_name"`

	// Absolute path of the source file as passed to the compiler
	SourcePath string `json:"source_path"`

	// ABI with the synthetic "gas" estimate removed from every entry
	ABI []map[string]any `json:"abi"`

	Bytecode        string `json:"bytecode"`
	BytecodeRuntime string `json:"bytecode_runtime,omitempty"`

	SourceMap         json.RawMessage   `json:"source_map,omitempty"`
	MethodIdentifiers map[string]string `json:"method_identifiers,omitempty"`

	// Compiler version reported in the combined payload
	Version string `json:"version,omitempty"`
}

// rawUnit is the per-file shape inside the combined_json payload.
type rawUnit struct {
	ABI               []map[string]any  `json:"abi"`
	Bytecode          string            `json:"bytecode"`
	BytecodeRuntime   string            `json:"bytecode_runtime"`
	SourceMap         json.RawMessage   `json:"source_map"`
	MethodIdentifiers map[string]string `json:"method_identifiers"`
}

// ParseCombinedJSON parses the combined payload of one invocation into
// per-file compiled units. The top-level "version" key is metadata, not
// a source file; every other key is a source path.
func ParseCombinedJSON(payload []byte) ([]*CompiledUnit, error) {
	var combined map[string]json.RawMessage
	if err := json.Unmarshal(payload, &combined); err != nil {
		return nil, fmt.Errorf("malformed combined_json output: %w", err)
	}

	compilerVersion := ""
	if raw, ok := combined["version"]; ok {
		if err := json.Unmarshal(raw, &compilerVersion); err != nil {
			return nil, fmt.Errorf("malformed version in combined_json output: %w", err)
		}

		delete(combined, "version")
	}

	units := make([]*CompiledUnit, 0, len(combined))
	for path, raw := range combined {
		var ru rawUnit
		if err := json.Unmarshal(raw, &ru); err != nil {
			return nil, fmt.Errorf("malformed combined_json entry for %s: %w", path, err)
		}

		units = append(units, &CompiledUnit{
			ContractName:      ContractName(path),
			SourcePath:        path,
			ABI:               StripGasEstimates(ru.ABI),
			Bytecode:          ru.Bytecode,
			BytecodeRuntime:   ru.BytecodeRuntime,
			SourceMap:         ru.SourceMap,
			MethodIdentifiers: ru.MethodIdentifiers,
			Version:           compilerVersion,
		})
	}

	return units, nil
}

// StripGasEstimates removes the "gas" field from every ABI entry. The
// estimate is non-deterministic across compiler runs and would break
// reproducible artifacts.
func StripGasEstimates(abi []map[string]any) []map[string]any {
	for _, entry := range abi {
		delete(entry, "gas")
	}

	return abi
}

// ContractName derives the contract name from a source path.
func ContractName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
