package terminal

import (
	"fmt"

	"github.com/go-delve/ppc64dec/pkg/config"
)

func configureCmd(t *Term, args string) error {
	switch args {
	case "-list":
		config.ConfigureList(t.stdout, t.conf, "yaml")
		return nil
	case "-save":
		return config.SaveConfig(t.conf)
	case "":
		return fmt.Errorf("wrong number of arguments to \"config\"")
	default:
		err := configureSet(t, args)
		if err != nil {
			return err
		}
		t.applyConfig()
		return nil
	}
}

func configureSet(t *Term, args string) error {
	v := split2PartsBySpace(args)

	cfgname := v[0]
	var rest string
	if len(v) == 2 {
		rest = v[1]
	}

	if cfgname == "alias" {
		return configureSetAlias(t, rest)
	}

	if rest == "" {
		line := config.ConfigureListByName(t.conf, cfgname, "yaml")
		if line == "" {
			return fmt.Errorf("%q is not a configuration parameter", cfgname)
		}
		fmt.Fprint(t.stdout, line)
		return nil
	}

	field := config.ConfigureFindFieldByName(t.conf, cfgname, "yaml")
	if !field.CanAddr() {
		return fmt.Errorf("%q is not a configuration parameter", cfgname)
	}

	return config.ConfigureSetSimple(rest, cfgname, field)
}

func configureSetAlias(t *Term, rest string) error {
	argv, err := splitArgs(rest)
	if err != nil {
		return err
	}
	switch len(argv) {
	case 1: // delete alias rule
		for k := range t.conf.Aliases {
			v := t.conf.Aliases[k]
			for i := range v {
				if v[i] == argv[0] {
					copy(v[i:], v[i+1:])
					t.conf.Aliases[k] = v[:len(v)-1]
					break
				}
			}
		}
	case 2: // add alias rule
		alias := argv[1]
		target, err := t.cmds.lookup(argv[0])
		if err != nil {
			return err
		}
		cmd := target.aliases[0]
		if t.conf.Aliases == nil {
			t.conf.Aliases = make(map[string][]string)
		}
		t.conf.Aliases[cmd] = append(t.conf.Aliases[cmd], alias)
	default:
		return fmt.Errorf("wrong number of arguments to \"config alias\"")
	}
	t.cmds.Merge(t.conf.Aliases)
	return nil
}
