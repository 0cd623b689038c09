package main

import "github.com/ValentinKolb/rsnDB/cmd"

func main() {
	cmd.Execute()
}
