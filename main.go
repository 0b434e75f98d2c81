package main

import (
	"github.com/minibit/minibit/cmd/minibit"
)

func main() {
	minibit.Execute()
}
