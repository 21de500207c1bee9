package main

import "github.com/mohammad-safakhou/newsrag/cmd"

func main() { cmd.Execute() }
