// Package fixture reads configuration snapshots from YAML or JSON files and
// writes them into a store.
package fixture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcnelson/trigger-macros/internal/domain"
	"github.com/bcnelson/trigger-macros/internal/storage"
)

// Format is the encoding of a fixture document.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the format from a file extension. Unknown extensions read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Decode parses a fixture document.
func Decode(data []byte, format Format) (*domain.State, error) {
	var state domain.State
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("parsing fixture: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("parsing fixture: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", format)
	}
	return &state, nil
}

// Encode renders a fixture document.
func Encode(state *domain.State, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(state, "", "  ")
	case FormatYAML:
		return yaml.Marshal(state)
	}
	return nil, fmt.Errorf("unsupported fixture format %q", format)
}

// Load reads and parses the fixture at path. It also returns the content
// digest, which identifies the snapshot in logs.
func Load(path string) (*domain.State, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading fixture file: %w", err)
	}
	state, err := Decode(data, FormatFromPath(path))
	if err != nil {
		return nil, "", err
	}
	return state, Digest(data), nil
}

// Save writes state to path in the format implied by its extension.
func Save(path string, state *domain.State) error {
	data, err := Encode(state, FormatFromPath(path))
	if err != nil {
		return fmt.Errorf("encoding fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing fixture file: %w", err)
	}
	return nil
}

// Digest returns the hex sha256 of data.
func Digest(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Apply writes every row of state through w in dependency order and returns
// per-kind row counts. It stops at the first failing row.
func Apply(ctx context.Context, w storage.Writer, state *domain.State) (*domain.ImportSummary, error) {
	summary := &domain.ImportSummary{}

	for _, h := range state.Hosts {
		if err := w.CreateHost(ctx, h); err != nil {
			return nil, fmt.Errorf("creating host %s: %w", h.ID, err)
		}
		summary.Hosts++
	}
	for _, h := range state.Hosts {
		for _, templateID := range h.TemplateIDs {
			if err := w.LinkTemplate(ctx, h.ID, templateID); err != nil {
				return nil, fmt.Errorf("linking template %s to host %s: %w", templateID, h.ID, err)
			}
			summary.TemplateLinks++
		}
	}
	for _, iface := range state.Interfaces {
		if err := w.CreateInterface(ctx, iface); err != nil {
			return nil, fmt.Errorf("creating interface %s: %w", iface.ID, err)
		}
		summary.Interfaces++
	}
	for _, m := range state.ValueMappings {
		if err := w.CreateValueMapping(ctx, m); err != nil {
			return nil, fmt.Errorf("creating value mapping %s/%s: %w", m.ValueMapID, m.Value, err)
		}
		summary.ValueMappings++
	}
	for _, item := range state.Items {
		if err := w.CreateItem(ctx, item); err != nil {
			return nil, fmt.Errorf("creating item %s: %w", item.ID, err)
		}
		summary.Items++
	}
	for _, t := range state.Triggers {
		if err := w.CreateTrigger(ctx, t); err != nil {
			return nil, fmt.Errorf("creating trigger %s: %w", t.ID, err)
		}
		summary.Triggers++
	}
	for _, f := range state.Functions {
		if err := w.CreateFunction(ctx, f); err != nil {
			return nil, fmt.Errorf("creating function %s: %w", f.ID, err)
		}
		summary.Functions++
	}
	for _, m := range state.HostMacros {
		if err := w.CreateHostMacro(ctx, m); err != nil {
			return nil, fmt.Errorf("creating host macro %s on %s: %w", m.Macro, m.HostID, err)
		}
		summary.HostMacros++
	}
	for _, m := range state.GlobalMacros {
		if err := w.CreateGlobalMacro(ctx, m); err != nil {
			return nil, fmt.Errorf("creating global macro %s: %w", m.Macro, err)
		}
		summary.GlobalMacros++
	}
	for _, v := range state.History {
		if err := w.AddHistory(ctx, v); err != nil {
			return nil, fmt.Errorf("adding history of item %s: %w", v.ItemID, err)
		}
		summary.History++
	}

	return summary, nil
}
