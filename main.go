// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/scarabmm/scarab/cmd/scarab"

func main() {
	cmd.Execute()
}
