package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/cbc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatLineComments Feature = iota
	FeatStrictRedecl
	FeatCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	FeatureMap map[string]Feature

	Target         string
	GOOS           string
	GOARCH         string
	WordSize       int
	SlotSize       int
	StackAlignment int
	ArgRegs        []string
	SymbolPrefix   string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		FeatureMap: make(map[string]Feature),
	}

	cfg.Features = map[Feature]Info{
		FeatLineComments: {"line-comments", true, "Recognize C99 '//' line comments."},
		FeatStrictRedecl: {"strict-redecl", false, "Reject a second declaration of a name within one function."},
	}
	for ft, info := range cfg.Features {
		cfg.FeatureMap[info.Name] = ft
	}

	cfg.setAMD64()
	cfg.Target = "amd64_sysv"
	return cfg
}

func (c *Config) setAMD64() {
	c.WordSize, c.SlotSize, c.StackAlignment = 8, 8, 16
	c.ArgRegs = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
}

// SetTarget selects the output ABI. An empty target falls back to the
// host's ABI name as libqbe spells it.
func (c *Config) SetTarget(goos, goarch, target string) error {
	if target == "" {
		target = libqbe.DefaultTarget(goos, goarch)
	}
	c.GOOS, c.GOARCH = goos, goarch

	switch target {
	case "amd64_sysv":
		c.SymbolPrefix = ""
	case "amd64_apple":
		c.SymbolPrefix = "_"
	default:
		return fmt.Errorf("unsupported target '%s'. Supported: 'amd64_sysv', 'amd64_apple'", target)
	}
	c.Target = target
	c.setAMD64()
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

// ApplyFlag handles a single -F<name> or -Fno-<name> switch.
func (c *Config) ApplyFlag(flag string) error {
	name := strings.TrimPrefix(strings.TrimPrefix(flag, "-"), "F")
	enable := true
	if strings.HasPrefix(name, "no-") {
		name, enable = strings.TrimPrefix(name, "no-"), false
	}
	ft, ok := c.FeatureMap[name]
	if !ok {
		return fmt.Errorf("unknown feature '%s'", name)
	}
	c.SetFeature(ft, enable)
	return nil
}

// SetupFlagGroups registers a -F<feature>/-Fno-<feature> pair for every
// feature. Pass the result to ApplyFlagGroups after parsing.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) []cli.FlagGroupEntry {
	entries := make([]cli.FlagGroupEntry, FeatCount)
	for ft := Feature(0); ft < FeatCount; ft++ {
		info := c.Features[ft]
		enabled, disabled := info.Enabled, false
		entries[ft] = cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: &enabled, Disabled: &disabled}
	}
	fs.AddFlagGroup("Feature Flags", "feature", entries)
	return entries
}

func (c *Config) ApplyFlagGroups(entries []cli.FlagGroupEntry) {
	for i, e := range entries {
		if *e.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if *e.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

// ApplyFeatures applies the values of a repeatable -F <name> flag in
// order. Each value is a feature name, optionally prefixed with "no-".
func (c *Config) ApplyFeatures(names []string) error {
	for _, name := range names {
		if err := c.ApplyFlag(name); err != nil {
			return err
		}
	}
	return nil
}

// Symbol returns the assembler spelling of a global name.
func (c *Config) Symbol(name string) string {
	if strings.HasPrefix(name, ".L") {
		return name
	}
	return c.SymbolPrefix + name
}
