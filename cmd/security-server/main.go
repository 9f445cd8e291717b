package main

import "github.com/oshokin/home-security/cmd/security-server/cmd"

func main() {
	cmd.Execute()
}
