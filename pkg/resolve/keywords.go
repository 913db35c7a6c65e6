// SPDX-License-Identifier: MPL-2.0

package resolve

import "strings"

// acceptsKeywords reports whether a package with the given KEYWORDS passes
// an ACCEPT_KEYWORDS list. An empty list accepts everything. "arch" accepts
// stable arch, "~arch" accepts stable or testing arch, "*" any stable
// keyword, "~*" any stable or testing keyword and "**" anything, including
// packages without keywords.
func acceptsKeywords(keywords, accept []string) bool {
	if len(accept) == 0 {
		return true
	}
	for _, acc := range accept {
		if acc == "**" {
			return true
		}
		for _, kw := range keywords {
			if strings.HasPrefix(kw, "-") {
				continue
			}
			testing := strings.HasPrefix(kw, "~")
			switch {
			case acc == "*" && !testing:
				return true
			case acc == "~*":
				return true
			case kw == acc:
				return true
			case strings.HasPrefix(acc, "~") && kw == acc[1:]:
				return true
			}
		}
	}
	return false
}
