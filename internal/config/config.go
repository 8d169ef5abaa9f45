// Package config defines hidrelay's Kong command tree and the reflection
// driven "config init" template generator, adapted from VIIPER's
// internal/cmd package.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/hidrelay/hidrelay/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// LogConfig holds the shared logging flags embedded in every subcommand.
type LogConfig struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" enum:"trace,debug,info,warn,error" env:"HIDRELAY_LOG_LEVEL"`
	File    string `help:"Also write structured logs to this file (console logs then all go to stderr)" env:"HIDRELAY_LOG_FILE"`
	RawFile string `help:"Write hex-dumped raw report traffic to this file" env:"HIDRELAY_LOG_RAWFILE"`
}

// CLI is the root Kong command tree.
type CLI struct {
	Config     string           `help:"Path to a config file (JSON/YAML/TOML)" env:"HIDRELAY_CONFIG"`
	Log        LogConfig        `embed:"" prefix:"log."`
	Bridge     BridgeCommand    `cmd:"" help:"Run or inspect the HID-to-sink bridge"`
	Descriptor DescriptorCommand `cmd:"" help:"Inspect a report descriptor"`
	ConfigCmd  ConfigCommand    `cmd:"" name:"config" help:"Generate a configuration template"`
}

// BridgeCommand groups the bridge-facing subcommands.
type BridgeCommand struct {
	Run   BridgeRun   `cmd:"" help:"Run the bridge against a real or simulated input source"`
	Demo  BridgeDemo  `cmd:"" help:"Run a canned scripted demo over the simulated sink"`
	Stats BridgeStats `cmd:"" help:"Run the bridge for a fixed duration and print final counters"`
}

// BridgeRun drives the facade continuously against an input source.
type BridgeRun struct {
	SinkAddr     string `help:"simlink sink address to dial" default:"127.0.0.1:7241" env:"HIDRELAY_SINK_ADDR"`
	SinkKeyHex   string `help:"32-byte simlink session key, hex encoded (random if empty)" env:"HIDRELAY_SINK_KEY"`
	LinkInterval int    `help:"Initial link interval, units of 1.25ms" default:"6" env:"HIDRELAY_LINK_INTERVAL"`
	Watch        bool   `help:"Repaint a live counter status line instead of plain logging"`
	Simulate     bool   `help:"Ask for a simulated input feed; none is built in, so the command exits and points to 'bridge demo'"`
}

// BridgeDemo runs the built-in scripted device sequence.
type BridgeDemo struct {
	SinkAddr string `help:"address to listen for the demo's simlink sink on" default:"127.0.0.1:7242"`
}

// BridgeStats runs the bridge for a bounded window and prints one Stats
// snapshot at the end, for scripting and smoke checks.
type BridgeStats struct {
	BridgeRun
	Duration string `help:"how long to run before printing stats" default:"5s"`
}

// DescriptorCommand inspects a descriptor blob without running the bridge.
type DescriptorCommand struct {
	Dump DescriptorDump `cmd:"" help:"Parse a descriptor and print its layouts and classification"`
}

// DescriptorDump reads raw descriptor bytes from a file or stdin.
type DescriptorDump struct {
	File string `arg:"" optional:"" help:"Descriptor file (binary); reads stdin if omitted"`
}

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file for a specific command.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"run,demo,stats"`
	Format  string `help:"Output format" enum:"json,yaml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
}

// Run generates a configuration template dynamically via reflection of the
// command structs and their Kong tags.
func (c *ConfigInit) Run() error {
	format := normalizeFormat(c.Format)
	if format == "" {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	var root map[string]any
	switch c.Command {
	case "run":
		root = buildMapFromStruct(reflect.TypeOf(BridgeRun{}))
	case "demo":
		root = buildMapFromStruct(reflect.TypeOf(BridgeDemo{}))
	case "stats":
		root = buildMapFromStruct(reflect.TypeOf(BridgeStats{}))
	default:
		return errors.New("unknown command; expected 'run', 'demo', or 'stats'")
	}

	dest := c.Output
	if dest == "" {
		ext := "json"
		if format == "yaml" {
			ext = "yaml"
		} else if format == "toml" {
			ext = "toml"
		}
		dest = "hidrelay-" + c.Command + "." + ext
	}

	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(root, "", "  ")
	case "yaml":
		data, err = yaml.Marshal(root)
	case "toml":
		data, err = toml.Marshal(root)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = toLower(r[0])
	return string(r)
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Tag.Get("kong") == "-" {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := f.Tag.Get("prefix")
			name := strings.TrimSuffix(prefix, ".")
			sub := buildMapFromStruct(f.Type)
			if name != "" {
				out[name] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}

		if f.Anonymous {
			for k, v := range buildMapFromStruct(f.Type) {
				out[k] = v
			}
			continue
		}

		key := lowerCamel(f.Name)
		def := f.Tag.Get("default")
		val := defaultValueForField(f.Type, def)
		if val != nil {
			out[key] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		if def == "" {
			return false
		}
		b, err := strconv.ParseBool(def)
		if err != nil {
			return false
		}
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseUint(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}
