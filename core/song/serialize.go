package song

import "strings"

// Serialize renders s in canonical song format. It never fails; values that
// Validate rejects are written as-is and may not parse back identically.
func Serialize(s *Song) string {
	var sb strings.Builder

	writeDirective(&sb, "title", s.Title)
	writeDirective(&sb, "author", s.Author)
	writeDirective(&sb, "category", s.Category)
	if s.Capo != "" {
		writeDirective(&sb, "capo", s.Capo)
	}
	sb.WriteByte('\n')

	for _, sec := range s.Sections {
		if sec.Chorus {
			sb.WriteString("#chorus\n")
		} else {
			sb.WriteString("#verse\n")
		}
		for _, ln := range sec.Lines() {
			sb.WriteString(ln.String())
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// Serialize is shorthand for Serialize(s).
func (s *Song) Serialize() string {
	return Serialize(s)
}

// Bytes returns the serialized song as UTF-8 bytes.
func (s *Song) Bytes() []byte {
	return []byte(Serialize(s))
}

func writeDirective(sb *strings.Builder, name, value string) {
	sb.WriteByte('#')
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(value)
	sb.WriteByte('\n')
}
