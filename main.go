package main

import "github.com/frahmantamala/policy-register/cmd"

func main() {
	cmd.Execute()
}
