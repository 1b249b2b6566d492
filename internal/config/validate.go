package config

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-errors/errors"
)

// ValidateKeys checks for duplicate keybindings and invalid key strings.
func ValidateKeys(keys *KeyBindings) error {
	// key -> action names, for duplicate detection
	keyMap := make(map[string][]string)

	v := reflect.ValueOf(keys).Elem()
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldName := t.Field(i).Tag.Get("yaml")

		if field.Kind() != reflect.String {
			continue
		}

		keyStr := strings.TrimSpace(field.String())
		if keyStr == "" {
			continue
		}

		if _, err := ParseKey(keyStr); err != nil {
			return errors.Errorf("invalid key for %s: %w", fieldName, err)
		}

		// Case matters for single characters ("a" and "A" are different keys)
		// but not for named keys ("F1" and "f1" are the same).
		normalized := keyStr
		if len(keyStr) > 1 {
			normalized = strings.ToLower(keyStr)
		}
		keyMap[normalized] = append(keyMap[normalized], fieldName)
	}

	var duplicates []string
	for key, actions := range keyMap {
		if len(actions) > 1 {
			duplicates = append(duplicates, key+" is used by: "+strings.Join(actions, ", "))
		}
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return errors.Errorf("duplicate keybindings found:\n  %s", strings.Join(duplicates, "\n  "))
	}

	return nil
}

// ValidateTheme checks that every configured color is one gocui understands.
func ValidateTheme(theme *Theme) error {
	v := reflect.ValueOf(theme.Colors)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		color := v.Field(i).String()
		if color != "" && !ValidateColor(color) {
			return errors.Errorf("invalid color %q for %s", color, t.Field(i).Tag.Get("yaml"))
		}
	}
	return nil
}

// ValidateColor checks if a color string is valid for gocui.
func ValidateColor(color string) bool {
	validColors := map[string]bool{
		"default": true,
		"black":   true,
		"red":     true,
		"green":   true,
		"yellow":  true,
		"blue":    true,
		"magenta": true,
		"cyan":    true,
		"white":   true,
	}
	return validColors[strings.ToLower(color)]
}
