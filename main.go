package main

import "adreport-forensics/cmd"

func main() {
	cmd.Execute()
}
