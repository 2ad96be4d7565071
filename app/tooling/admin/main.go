// This program performs administrative tasks against a stored audit chain
// while the node is offline.
package main

import "github.com/clinicaudit/ledger/app/tooling/admin/cmd"

func main() {
	cmd.Execute()
}
