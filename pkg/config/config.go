package config

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v2"
)

const (
	configDir       string = "ppc64dec"
	configDirHidden string = ".ppc64dec"
	configFile      string = "config.yml"
)

// Config defines all configuration options available to be set through the config file.
type Config struct {
	// Commands aliases.
	Aliases map[string][]string `yaml:"aliases"`

	// ShowBytes makes disasm print the encoding of every instruction.
	ShowBytes bool `yaml:"show-bytes"`

	// SyntaxHighlight colours instruction text by token kind when the
	// output is a terminal.
	SyntaxHighlight *bool `yaml:"syntax-highlight,omitempty"`

	// Mnemonic, register and immediate colors (3/4 bit color codes as
	// defined here: https://en.wikipedia.org/wiki/ANSI_escape_code#Colors)
	ColorMnemonic  string `yaml:"color-mnemonic"`
	ColorRegister  string `yaml:"color-register"`
	ColorImmediate string `yaml:"color-immediate"`

	// MaxLiftInstructions is the maximum number of instructions lift
	// translates in one go.
	MaxLiftInstructions *int `yaml:"max-lift-instructions,omitempty"`

	// CacheSize is the number of decoded words kept in memory.
	CacheSize *int `yaml:"cache-size,omitempty"`

	// BaseAddress is the load address of images that do not specify one.
	BaseAddress uint64 `yaml:"base-address"`
}

const (
	defaultMaxLiftInstructions = 256
	defaultCacheSize           = 4096
)

// GetMaxLiftInstructions returns the configured limit or its default.
func (c *Config) GetMaxLiftInstructions() int {
	if c.MaxLiftInstructions == nil || *c.MaxLiftInstructions <= 0 {
		return defaultMaxLiftInstructions
	}
	return *c.MaxLiftInstructions
}

// GetCacheSize returns the configured cache size or its default.
func (c *Config) GetCacheSize() int {
	if c.CacheSize == nil || *c.CacheSize <= 0 {
		return defaultCacheSize
	}
	return *c.CacheSize
}

// GetSyntaxHighlight reports whether syntax highlighting is enabled, it
// is unless disabled explicitly.
func (c *Config) GetSyntaxHighlight() bool {
	return c.SyntaxHighlight == nil || *c.SyntaxHighlight
}

// LoadConfig attempts to populate a Config object from the config.yml file.
func LoadConfig() (*Config, error) {
	err := createConfigPath()
	if err != nil {
		return &Config{}, fmt.Errorf("could not create config directory: %v", err)
	}
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to get config file path: %v", err)
	}

	f, err := os.Open(fullConfigFile)
	if err != nil {
		f, err = createDefaultConfig(fullConfigFile)
		if err != nil {
			return &Config{}, fmt.Errorf("error creating default config file: %v", err)
		}
	}
	defer func() {
		err := f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Closing config file failed: %v.\n", err)
		}
	}()

	return readConfig(f)
}

func readConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to read config data: %v", err)
	}

	var c Config
	err = yaml.Unmarshal(data, &c)
	if err != nil {
		return &Config{}, fmt.Errorf("unable to decode config file: %v", err)
	}
	return &c, nil
}

// SaveConfig will marshal and save the config struct
// to disk.
func SaveConfig(conf *Config) error {
	fullConfigFile, err := GetConfigFilePath(configFile)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		return err
	}

	f, err := os.Create(fullConfigFile)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(out)
	return err
}

func createDefaultConfig(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create config file: %v", err)
	}
	err = writeDefaultConfig(f)
	if err != nil {
		return nil, fmt.Errorf("unable to write default configuration: %v", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return f, nil
}

func writeDefaultConfig(f io.Writer) error {
	_, err := io.WriteString(f,
		`# Configuration file for the ppc64dec decoder.

# This is the default configuration file. Available options are provided, but disabled.
# Delete the leading hash mark to enable an item.

# Provided aliases will be added to the default aliases for a given command.
aliases:
  # command: ["alias1", "alias2"]

# Uncomment the following line to print the encoding of every instruction.
# show-bytes: true

# Uncomment the following line to disable syntax highlighting of instructions.
# syntax-highlight: false

# ANSI foreground colors used for syntax highlighting, see
# https://en.wikipedia.org/wiki/ANSI_escape_code#3/4_bit
# color-mnemonic: "\033[1m"
# color-register: "\033[36m"
# color-immediate: "\033[33m"

# Maximum number of instructions translated by a single lift.
# max-lift-instructions: 256

# Number of decoded instruction words kept in memory.
# cache-size: 4096

# Load address of images opened without --base.
# base-address: 0x10000000
`)
	return err
}

// createConfigPath creates the directory structure at which all config files are saved.
func createConfigPath() error {
	path, err := GetConfigFilePath("")
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0700)
}

// GetConfigFilePath gets the full path to the given config file name.
// $XDG_CONFIG_HOME/ppc64dec is used when XDG_CONFIG_HOME is set and the
// legacy ~/.ppc64dec directory does not exist.
func GetConfigFilePath(file string) (string, error) {
	userHomeDir := "."
	usr, err := user.Current()
	if err == nil {
		userHomeDir = usr.HomeDir
	}
	legacy := path.Join(userHomeDir, configDirHidden)
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		if _, err := os.Stat(legacy); err != nil {
			return path.Join(xdg, configDir, file), nil
		}
	}
	return path.Join(legacy, file), nil
}

// ConfigureFindFieldByName returns the field of the struct pointed to by
// sargs whose tag cfgname matches name.
func ConfigureFindFieldByName(sargs interface{}, name, cfgname string) reflect.Value {
	it := iterateConfiguration(sargs, cfgname)
	for it.Next() {
		fieldName, field := it.Field()
		if fieldName == name {
			return field
		}
	}
	return reflect.ValueOf(nil)
}

// ConfigureList writes every field of the struct pointed to by sargs that
// has a cfgname tag, one per line.
func ConfigureList(out io.Writer, sargs interface{}, cfgname string) {
	w := new(tabwriter.Writer)
	w.Init(out, 0, 8, 1, ' ', 0)

	it := iterateConfiguration(sargs, cfgname)
	for it.Next() {
		fieldName, field := it.Field()
		if fieldName == "" {
			continue
		}
		writeField(w, fieldName, field)
	}
	w.Flush()
}

// ConfigureListByName returns the line ConfigureList would print for the
// field called name, or the empty string.
func ConfigureListByName(sargs interface{}, name, cfgname string) string {
	if name == "" {
		return ""
	}
	it := iterateConfiguration(sargs, cfgname)
	var buf strings.Builder
	for it.Next() {
		fieldName, field := it.Field()
		if fieldName == name {
			writeField(&buf, fieldName, field)
			return buf.String()
		}
	}
	return ""
}

func writeField(w io.Writer, fieldName string, field reflect.Value) {
	if field.Kind() == reflect.Ptr {
		if !field.IsNil() {
			fmt.Fprintf(w, "%s\t%v\n", fieldName, field.Elem())
		} else {
			fmt.Fprintf(w, "%s\t<not defined>\n", fieldName)
		}
	} else {
		fmt.Fprintf(w, "%s\t%v\n", fieldName, field)
	}
}

// ConfigureSetSimple parses rest and stores it into field, which must be an
// int, uint64, bool or string or a pointer to one.
func ConfigureSetSimple(rest string, cfgname string, field reflect.Value) error {
	simpleArg := func(typ reflect.Type) (reflect.Value, error) {
		switch typ.Kind() {
		case reflect.Int:
			n, err := strconv.Atoi(rest)
			if err != nil {
				return reflect.ValueOf(nil), fmt.Errorf("argument to %q must be a number", cfgname)
			}
			if n < 0 {
				return reflect.ValueOf(nil), fmt.Errorf("argument to %q must be a number greater than zero", cfgname)
			}
			return reflect.ValueOf(&n), nil
		case reflect.Uint64:
			n, err := strconv.ParseUint(rest, 0, 64)
			if err != nil {
				return reflect.ValueOf(nil), fmt.Errorf("argument to %q must be an address", cfgname)
			}
			return reflect.ValueOf(&n), nil
		case reflect.Bool:
			if rest != "true" && rest != "false" {
				return reflect.ValueOf(nil), fmt.Errorf("argument to %q must be true or false", cfgname)
			}
			v := rest == "true"
			return reflect.ValueOf(&v), nil
		case reflect.String:
			unquoted, err := strconv.Unquote(rest)
			if err == nil {
				rest = unquoted
			}
			return reflect.ValueOf(&rest), nil
		default:
			return reflect.ValueOf(nil), fmt.Errorf("unsupported type for configuration key %q", cfgname)
		}
	}

	if field.Kind() == reflect.Ptr {
		val, err := simpleArg(field.Type().Elem())
		if err != nil {
			return err
		}
		field.Set(val)
	} else {
		val, err := simpleArg(field.Type())
		if err != nil {
			return err
		}
		field.Set(val.Elem())
	}
	return nil
}

type configureIterator struct {
	cfgValue reflect.Value
	cfgType  reflect.Type
	i        int
	cfgname  string
}

func iterateConfiguration(sargs interface{}, cfgname string) *configureIterator {
	cfgValue := reflect.ValueOf(sargs).Elem()
	cfgType := cfgValue.Type()

	return &configureIterator{cfgValue, cfgType, -1, cfgname}
}

func (it *configureIterator) Next() bool {
	it.i++
	return it.i < it.cfgValue.NumField()
}

func (it *configureIterator) Field() (name string, field reflect.Value) {
	name = it.cfgType.Field(it.i).Tag.Get(it.cfgname)
	if comma := strings.Index(name, ","); comma >= 0 {
		name = name[:comma]
	}
	field = it.cfgValue.Field(it.i)
	return
}
