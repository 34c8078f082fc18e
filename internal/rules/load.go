package rules

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// Load reads a YAML rule table. File order is evaluation order.
func Load(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	return parse(data)
}

// LoadFile reads a YAML rule table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the rule table embedded in the binary. It panics only if
// the embedded file is broken, which a unit test guards against.
func Default() *Table {
	t, err := parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded rules.yaml invalid: %v", err))
	}
	return t
}

func parse(data []byte) (*Table, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	return NewTable(rf.Rules)
}
