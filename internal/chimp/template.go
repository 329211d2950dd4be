package chimp

import (
	"fmt"
	"strings"
)

// Build substitutes the named values into the template's content slots and
// returns the built body. Slots appear in the content as *|NAME|* markers;
// lookup is case-insensitive on the value keys. A value whose slot does not
// exist in the template is an error. Slots without a supplied value are left
// in place for the service to fill with its stored defaults.
func (t *Template) Build(values map[string]string) (string, error) {
	built := t.Content
	for name, value := range values {
		slot := "*|" + strings.ToUpper(name) + "|*"
		if !strings.Contains(built, slot) {
			return "", fmt.Errorf("chimp: template %d has no slot %q", t.ID, name)
		}
		built = strings.ReplaceAll(built, slot, value)
	}
	return built, nil
}
