// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/palette/cmd/palette"

func main() {
	cmd.Execute()
}
