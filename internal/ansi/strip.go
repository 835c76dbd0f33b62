// Package ansi strips terminal control sequences from captured pane
// text so status classification and session-id scraping only ever see
// printable content.
package ansi

import "strings"

// Strip removes ANSI/CSI/OSC escape sequences from content in a single
// pass. It never uses a regexp: backtracking on adversarial or merely
// large scrollback content is not worth risking.
func Strip(content string) string {
	if strings.IndexByte(content, '\x1b') < 0 && strings.IndexByte(content, '\x9B') < 0 {
		return content
	}

	var b strings.Builder
	b.Grow(len(content))

	i := 0
	for i < len(content) {
		if content[i] == '\x1b' {
			if i+1 < len(content) && content[i+1] == '[' {
				j := i + 2
				for j < len(content) {
					c := content[j]
					if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
						j++
						break
					}
					j++
				}
				i = j
				continue
			}
			if i+1 < len(content) && content[i+1] == ']' {
				if bellPos := strings.Index(content[i:], "\x07"); bellPos != -1 {
					i += bellPos + 1
					continue
				}
				if stPos := strings.Index(content[i:], "\x1b\\"); stPos != -1 {
					i += stPos + 2
					continue
				}
			}
			if i+1 < len(content) {
				i += 2
				continue
			}
		}
		if content[i] == '\x9B' {
			j := i + 1
			for j < len(content) {
				c := content[j]
				if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
					j++
					break
				}
				j++
			}
			i = j
			continue
		}
		b.WriteByte(content[i])
		i++
	}

	return b.String()
}
