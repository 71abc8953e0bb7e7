package main

import (
	"github.com/ridge/launch"
)

func main() {
	launch.Main()
}
