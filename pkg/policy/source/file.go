package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mercator-hq/callisto/pkg/policy/module"
)

// FileSource loads module definitions from YAML files on disk. The
// path can be a single file or a directory; directories are walked for
// .yaml and .yml files.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based module source.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// moduleFile is the YAML shape of one module definition.
type moduleFile struct {
	Namespace   string         `yaml:"namespace"`
	Description string         `yaml:"description"`
	Imports     []string       `yaml:"imports"`
	Policies    map[string]any `yaml:"policies"`
}

// policyFile is the explicit YAML policy form. Policies may also be
// bare expression vectors.
type policyFile struct {
	Expr        any            `yaml:"expr"`
	Params      map[string]any `yaml:"params"`
	Description string         `yaml:"description"`
}

// Load reads all module definitions from the configured path.
func (s *FileSource) Load(ctx context.Context) ([]module.ModuleDef, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var defs []module.ModuleDef
	if info.IsDir() {
		defs, err = s.loadDirectory(ctx)
	} else {
		defs, err = s.loadFile(s.path)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded module definitions",
		"path", s.path,
		"module_count", len(defs),
	)
	return defs, nil
}

func (s *FileSource) loadDirectory(ctx context.Context) ([]module.ModuleDef, error) {
	var defs []module.ModuleDef

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		fileDefs, err := s.loadFile(path)
		if err != nil {
			return err
		}
		defs = append(defs, fileDefs...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return defs, nil
}

// loadFile parses one YAML file, which may hold several module
// documents separated by "---".
func (s *FileSource) loadFile(path string) ([]module.ModuleDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	var defs []module.ModuleDef
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var mf moduleFile
		if err := decoder.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse module file %q: %w", path, err)
		}
		if mf.Namespace == "" {
			return nil, fmt.Errorf("module file %q: namespace is required", path)
		}

		def := module.ModuleDef{
			Namespace:   mf.Namespace,
			Description: mf.Description,
			Imports:     mf.Imports,
			Policies:    make(map[string]any, len(mf.Policies)),
		}
		for name, raw := range mf.Policies {
			def.Policies[name] = normalizePolicy(raw)
		}
		defs = append(defs, def)

		s.logger.Debug("loaded module definition",
			"path", path,
			"namespace", mf.Namespace,
			"policy_count", len(mf.Policies),
		)
	}

	return defs, nil
}

// normalizePolicy converts a YAML policy value into the registry input
// shape: the explicit {expr, params, description} mapping becomes a
// PolicySpec, anything else is treated as a bare expression.
func normalizePolicy(raw any) any {
	if m, ok := raw.(map[string]any); ok {
		if expr, ok := m["expr"]; ok {
			spec := module.PolicySpec{Expr: normalizeValue(expr)}
			if params, ok := m["params"].(map[string]any); ok {
				spec.Params = make(map[string]any, len(params))
				for k, v := range params {
					spec.Params[k] = normalizeValue(v)
				}
			}
			if desc, ok := m["description"].(string); ok {
				spec.Description = desc
			}
			return spec
		}
	}
	return normalizeValue(raw)
}

// NormalizeExpr maps a YAML-decoded expression onto the parser input
// shape. Callers feeding ad-hoc YAML expressions to the parser (rather
// than whole module files) use this to get the same treatment module
// policies get.
func NormalizeExpr(v any) any {
	return normalizeValue(v)
}

// normalizeValue maps YAML-decoded values onto the expression input
// shape. Sequences headed by a keyword are expression vectors and
// normalize element-wise. Other sequences are value literals and
// convert to typed slices so the parser does not mistake them for
// calls. Integers widen to float64, matching JSON document decoding.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		if isExprVector(val) {
			out := make([]any, len(val))
			for i, item := range val {
				out[i] = normalizeValue(item)
			}
			return out
		}
		return literalSlice(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return v
	}
}

// isExprVector reports whether a sequence is an expression vector,
// recognized by a ":"-prefixed keyword head. Empty sequences stay
// literals.
func isExprVector(vec []any) bool {
	if len(vec) == 0 {
		return false
	}
	head, ok := vec[0].(string)
	return ok && len(head) > 1 && head[0] == ':'
}

// literalSlice converts a homogeneous value sequence to a typed slice.
// Mixed sequences stay []any with elements normalized.
func literalSlice(vec []any) any {
	strs := make([]string, 0, len(vec))
	nums := make([]float64, 0, len(vec))
	for _, item := range vec {
		switch e := normalizeValue(item).(type) {
		case string:
			strs = append(strs, e)
		case float64:
			nums = append(nums, e)
		}
	}
	switch {
	case len(strs) == len(vec):
		return strs
	case len(nums) == len(vec):
		return nums
	default:
		out := make([]any, len(vec))
		for i, item := range vec {
			out[i] = normalizeValue(item)
		}
		return out
	}
}
