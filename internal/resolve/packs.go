package resolve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mapstream/mapstream/api"
)

// packsSchema validates the externally authored pack list before anything
// trusts it. A malformed pack entry would silently reorder resolution for
// every texture, so this fails at the parse boundary instead.
const packsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["packs"],
  "properties": {
    "packs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "rootRel", "priority", "enabled"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "rootRel": {"type": "string", "minLength": 1},
          "priority": {"type": "integer"},
          "enabled": {"type": "boolean"}
        }
      }
    }
  }
}`

var compiledPacksSchema = jsonschema.MustCompileString("packs.schema.json", packsSchema)

// LoadPacks reads and validates packs.json. A missing file means no overlay
// packs, which is a perfectly normal base-only install.
func LoadPacks(fs billy.Filesystem, path string) ([]api.Pack, error) {
	raw, err := util.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := compiledPacksSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}

	var cfg api.PackConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg.Packs, nil
}

// orderPacks returns the enabled packs in resolution order: priority
// descending, ties broken by id ascending. The input order never matters,
// so two installs with shuffled packs.json files resolve identically.
func orderPacks(packs []api.Pack) []api.Pack {
	out := make([]api.Pack, 0, len(packs))
	for _, p := range packs {
		if p.Enabled {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return strings.Compare(out[i].ID, out[j].ID) < 0
	})
	return out
}
