// SPDX-License-Identifier: MPL-2.0

package main

import "pkgkit/cmd/pkgkit"

func main() {
	cmd.Execute()
}
