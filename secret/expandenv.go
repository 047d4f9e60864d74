package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc looks up an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ExpandEnvStrict expands environment variables in s using the process
// environment. See ExpandStrict.
func ExpandEnvStrict(s string) (string, error) {
	return ExpandStrict(s, os.LookupEnv)
}

// ExpandStrict expands $VAR and ${VAR} in s using lookup.
//
// A braced ${VAR} that lookup does not know is an error wrapping
// ErrMissingEnv; a bare $VAR expands to the empty string. $$ yields a
// literal $.
func ExpandStrict(s string, lookup LookupFunc) (string, error) {
	const dollarSentinel = "\x00SHORA_SECRET_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	var missing []string
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		key := match[1]
		if _, ok := lookup(key); !ok && !slices.Contains(missing, key) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	s = os.Expand(s, func(key string) string {
		v, _ := lookup(key)
		return v
	})
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
