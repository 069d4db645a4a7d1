package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/rover/cmd/rover-mission/app"
)

func main() {
	app.NewApp().Run()
}
