package tags

import (
	"strings"

	"howett.net/plist"

	"github.com/taghound/taghound/pkg/types"
)

// Decoder turns raw OS tag-annotation bytes into an ordered tag list.
// Empty input means "no tags", never an error. A decode failure is
// reported as types.ErrDecode and callers treat it as "no tags" rather
// than failing the file record.
type Decoder interface {
	Decode(raw []byte) ([]types.TagAnnotation, error)
}

// PlistDecoder decodes the native annotation format: a property list
// (binary or XML) holding an array of strings, where each string is
// either "Name" or "Name\n<color digit>".
type PlistDecoder struct{}

func NewPlistDecoder() *PlistDecoder {
	return &PlistDecoder{}
}

func (d *PlistDecoder) Decode(raw []byte) ([]types.TagAnnotation, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []string
	if _, err := plist.Unmarshal(raw, &entries); err != nil {
		return nil, &types.ErrDecode{Reason: err.Error()}
	}

	annotations := make([]types.TagAnnotation, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		name, color := splitAnnotation(entry)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		annotations = append(annotations, types.TagAnnotation{
			Name:     name,
			Color:    color,
			Position: len(annotations),
		})
	}

	return annotations, nil
}

// splitAnnotation separates a tag name from its optional trailing color
// digit. Anything outside 0-7 counts as no color.
func splitAnnotation(entry string) (string, types.TagColor) {
	name, digit, found := strings.Cut(entry, "\n")
	name = strings.TrimSpace(name)
	if !found {
		return name, types.TagColorNone
	}

	digit = strings.TrimSpace(digit)
	if len(digit) == 1 && digit[0] >= '0' && digit[0] <= '7' {
		return name, types.TagColor(digit[0] - '0')
	}
	return name, types.TagColorNone
}
