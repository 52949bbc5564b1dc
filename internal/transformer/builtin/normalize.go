package builtin

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"evadoption/internal/frame"
)

var spaceFixer = strings.NewReplacer(
	"\u00c2\u00a0", " ", // no-break space decoded as Latin-1
	"\u00a0", " ",
	"\u200b", "",
)

// Normalize cleans string cells so that region names from different
// sources compare equal: odd spaces become plain spaces, edges are trimmed
// and the text is put in Unicode NFC. Cells left empty become nil.
type Normalize struct{}

func (Normalize) Apply(f *frame.Frame) (*frame.Frame, error) {
	for _, row := range f.Rows() {
		for j, v := range row {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(spaceFixer.Replace(s))
			if !norm.NFC.IsNormalString(s) {
				s = norm.NFC.String(s)
			}
			if s == "" {
				row[j] = nil
			} else {
				row[j] = s
			}
		}
	}
	return f, nil
}
