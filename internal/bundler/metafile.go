package bundler

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
)

// Metafile is the subset of esbuild's metafile JSON used to classify outputs.
type Metafile struct {
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileOutput is one produced file in the metafile.
type MetafileOutput struct {
	Bytes      int      `json:"bytes"`
	Exports    []string `json:"exports"`
	EntryPoint string   `json:"entryPoint,omitempty"`
	CSSBundle  string   `json:"cssBundle,omitempty"`
}

// ParseMetafile decodes raw metafile JSON.
func ParseMetafile(raw string) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Classify converts metafile outputs into descriptors with absolute paths,
// sorted by path. Paths in the metafile are relative to workDir.
func (m *Metafile) Classify(workDir string) []Output {
	outputs := make([]Output, 0, len(m.Outputs))
	for rel, out := range m.Outputs {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, filepath.FromSlash(rel))
		}
		o := Output{Path: path, Kind: OutputAsset}
		switch ext := strings.ToLower(filepath.Ext(rel)); {
		case ext != ".js" && ext != ".mjs":
		case out.EntryPoint != "":
			o.Kind = OutputEntryPoint
			o.EntryPoint = out.EntryPoint
			if !filepath.IsAbs(o.EntryPoint) {
				o.EntryPoint = filepath.Join(workDir, filepath.FromSlash(o.EntryPoint))
			}
			if out.CSSBundle != "" {
				o.CSSBundle = out.CSSBundle
				if !filepath.IsAbs(o.CSSBundle) {
					o.CSSBundle = filepath.Join(workDir, filepath.FromSlash(o.CSSBundle))
				}
			}
		default:
			o.Kind = OutputChunk
		}
		outputs = append(outputs, o)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Path < outputs[j].Path })
	return outputs
}
