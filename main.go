// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bending/bendboot/cmd/bendboot"

func main() {
	cmd.Execute()
}
