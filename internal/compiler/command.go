package compiler

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// The optimizer flag dialect changed twice. Before 0.3.1 there was no
// optimizer control at all; from 0.3.1 the optimizer is on by default
// and can only be switched off (--no-optimize); from 0.3.10 the switch
// takes a named mode (--optimize gas|codesize|none) and the boolean
// form is gone.
var (
	optimizeIntroduced = goversion.Must(goversion.NewVersion("0.3.1"))
	optimizeModes      = goversion.Must(goversion.NewVersion("0.3.10"))
)

// BuildCommandArgs translates abstract settings into the exact flag
// list accepted by the given compiler version. The version comparisons
// are semantic, never lexical.
func BuildCommandArgs(v *goversion.Version, s Settings) ([]string, error) {
	var args []string

	if s.EVMVersion != "" {
		args = append(args, "--evm-version", s.EVMVersion)
	}

	optArgs, err := optimizeArgs(v, s.Optimize)
	if err != nil {
		return nil, err
	}

	return append(args, optArgs...), nil
}

func optimizeArgs(v *goversion.Version, optimize any) ([]string, error) {
	if optimize == nil {
		return nil, nil
	}

	if v == nil {
		return nil, &SettingsError{
			Msg: "compilerVersion must be set when the optimize setting is used",
		}
	}

	switch opt := optimize.(type) {
	case bool:
		return optimizeBoolArgs(v, opt)
	case string:
		if v.LessThan(optimizeModes) {
			return nil, &SettingsError{
				Msg: fmt.Sprintf(
					"optimize mode %q is not supported by vyper %s: named modes require vyper %s or later",
					opt, v, optimizeModes,
				),
			}
		}

		return []string{"--optimize", opt}, nil
	default:
		return nil, &SettingsError{
			Msg: fmt.Sprintf("invalid optimize value %v (%T): must be a boolean or a mode string", optimize, optimize),
		}
	}
}

func optimizeBoolArgs(v *goversion.Version, on bool) ([]string, error) {
	if on {
		// Only the [0.3.1, 0.3.10) line has an always-on optimizer that
		// "optimize = true" can map onto (as the absence of
		// --no-optimize). Outside it the boolean form is meaningless.
		if v.LessThan(optimizeIntroduced) || v.GreaterThanOrEqual(optimizeModes) {
			return nil, &SettingsError{
				Msg: fmt.Sprintf(
					"optimize=true is not supported by vyper %s: use a named optimize mode for %s+, or remove the setting",
					v, optimizeModes,
				),
			}
		}

		// Optimizer on by default, no flag
		return nil, nil
	}

	if v.GreaterThanOrEqual(optimizeModes) {
		return []string{"--optimize", "none"}, nil
	}

	return []string{"--no-optimize"}, nil
}
