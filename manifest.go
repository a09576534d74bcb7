package pitarchive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/etnz/pitarchive/date"
)

// manifestSchema is validated against every manifest before decoding, so a
// typo in a scheme name or a missing primary key fails loudly at load time
// rather than as a half-configured asset at run time.
const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["assets"],
  "additionalProperties": false,
  "properties": {
    "assets": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "scheme", "primaryKey"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "pattern": "^[a-z0-9_]+$"},
          "scheme": {"enum": ["period", "date", "snapshot", "trade_date", "entity"]},
          "primaryKey": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
          "dedup": {"enum": ["fail", "keep_first", "keep_last"]},
          "backfillStart": {"type": "string"},
          "lookback": {"type": "integer", "minimum": 0},
          "peakLookback": {"type": "integer", "minimum": 0},
          "entities": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "extract": {
            "type": "object",
            "required": ["rows", "columns", "fields"],
            "additionalProperties": false,
            "properties": {
              "rows": {"type": "string", "minLength": 1},
              "columns": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
              "fields": {"type": "object", "additionalProperties": {"type": "string", "minLength": 1}}
            }
          }
        }
      }
    }
  }
}`

// assetCmd is a specialized struct for decoding one manifest asset.
type assetCmd struct {
	Name          string        `json:"name"`
	Scheme        string        `json:"scheme"`
	PrimaryKey    []string      `json:"primaryKey"`
	Dedup         string        `json:"dedup"`
	BackfillStart string        `json:"backfillStart"`
	Lookback      int           `json:"lookback"`
	PeakLookback  int           `json:"peakLookback"`
	Entities      []string      `json:"entities"`
	Extract       *ExtractRules `json:"extract"`
}

type manifestCmd struct {
	Assets []assetCmd `json:"assets"`
}

// Manifest is the set of configured assets, indexed by name.
type Manifest struct {
	assets []*Asset
	byName map[string]*Asset
}

// Assets returns every configured asset in manifest order.
func (m *Manifest) Assets() []*Asset { return m.assets }

// Asset returns the asset with this name, or nil if unknown.
func (m *Manifest) Asset(name string) *Asset { return m.byName[name] }

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()
	m, err := DecodeManifest(f)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// DecodeManifest validates a manifest document against the schema and
// decodes it.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := validateManifest(raw); err != nil {
		return nil, err
	}

	// The schema already rejects unknown properties, plain decoding is safe.
	var cmd manifestCmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, err
	}

	m := &Manifest{byName: make(map[string]*Asset, len(cmd.Assets))}
	for _, ac := range cmd.Assets {
		a, err := ac.asset()
		if err != nil {
			return nil, err
		}
		if m.byName[a.Name] != nil {
			return nil, fmt.Errorf("duplicate asset %q", a.Name)
		}
		m.assets = append(m.assets, a)
		m.byName[a.Name] = a
	}
	return m, nil
}

func validateManifest(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(manifestSchema))
	if err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	if err := compiler.AddResource("manifest.schema.json", doc); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}

func (ac assetCmd) asset() (*Asset, error) {
	scheme, err := ParseScheme(ac.Scheme)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", ac.Name, err)
	}
	dedup, err := ParseDedup(ac.Dedup)
	if err != nil {
		return nil, fmt.Errorf("asset %q: %w", ac.Name, err)
	}
	a := &Asset{
		Name:         ac.Name,
		Scheme:       scheme,
		PrimaryKey:   ac.PrimaryKey,
		Dedup:        dedup,
		Lookback:     ac.Lookback,
		PeakLookback: ac.PeakLookback,
		Entities:     ac.Entities,
		Extract:      ac.Extract,
	}
	if ac.BackfillStart != "" {
		start, err := date.Parse(ac.BackfillStart)
		if err != nil {
			return nil, fmt.Errorf("asset %q: backfill start: %w", ac.Name, err)
		}
		a.BackfillStart = start
	}
	switch scheme {
	case ByEntity:
		if len(a.Entities) == 0 {
			return nil, fmt.Errorf("asset %q: entity scheme needs entities", ac.Name)
		}
	case ByPeriod, ByDate, ByTradeDate:
		if a.BackfillStart.IsZero() {
			return nil, fmt.Errorf("asset %q: scheme %s needs a backfill start", ac.Name, scheme)
		}
	}
	if a.Extract != nil {
		if err := a.Extract.validate(); err != nil {
			return nil, fmt.Errorf("asset %q: %w", ac.Name, err)
		}
	}
	return a, nil
}
