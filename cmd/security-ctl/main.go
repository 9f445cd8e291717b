package main

import "github.com/oshokin/home-security/cmd/security-ctl/cmd"

func main() {
	cmd.Execute()
}
