package layer

import "strings"

// PosHead returns the part of a tag before its feature list:
// "NOU(num=sg)" -> "NOU".
func PosHead(pos string) string {
	if i := strings.IndexByte(pos, '('); i >= 0 {
		pos = pos[:i]
	}
	return strings.TrimSpace(pos)
}

// PosHeadGroup returns the heads of a composite tag joined by '+':
// "PD(type=art)+NOU(num=sg)" -> "PD+NOU". A '+' inside a feature list does
// not split.
func PosHeadGroup(pos string) string {
	var heads []string
	depth, start := 0, 0
	for i := 0; i < len(pos); i++ {
		switch pos[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '+':
			if depth == 0 {
				heads = append(heads, PosHead(pos[start:i]))
				start = i + 1
			}
		}
	}
	heads = append(heads, PosHead(pos[start:]))
	return strings.Join(heads, "+")
}
