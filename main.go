package main

import "github.com/ValentinKolb/adaptive/cmd"

func main() {
	cmd.Execute()
}
