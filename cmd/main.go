package main

import "grow_controller/cmd/commands"

// @title                       Grow Controller API
// @version                     1.0
// @description                 Greenhouse climate control, light and irrigation scheduling.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	commands.Execute()
}
